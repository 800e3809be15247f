package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/dataset"
)

// Facts are the dataset properties injected into every instruction.
type Facts struct {
	Info    dataset.Info
	Columns []dataset.Column
}

// System builds the system instruction for mode.
func System(mode Mode, f Facts) string {
	if mode == ModeCode {
		return codeSystem(f)
	}
	return textSystem(f)
}

func codeSystem(f Facts) string {
	var b strings.Builder
	b.WriteString("Você é um assistente que gera código Python para análise de dados.\n\n")
	writeFacts(&b, f)
	b.WriteString("\nRESPONDA APENAS COM CÓDIGO PYTHON COMPLETO:\n")
	fmt.Fprintf(&b, "- O DataFrame df contém TODOS os dados do arquivo (%s linhas, %s colunas)\n",
		thousands(f.Info.RowCount), thousands(f.Info.ColumnCount))
	b.WriteString(`- NÃO use pd.read_csv nem recarregue o dataset.
- NÃO use df.sample() - analise o dataset completo
- ANALISE TODAS AS COLUNAS NUMÉRICAS disponíveis
- Use df.select_dtypes(include=['number']).columns para pegar todas as colunas numéricas

REGRAS IMPORTANTES PARA SUBPLOTS:
- NUNCA use grids fixos como (3,3), (2,2), (4,4)
- SEMPRE calcule dinamicamente: n_cols = len(numeric_cols)
- SEMPRE calcule: n_rows = (n_cols + 3) // 4  # 4 colunas por linha
- SEMPRE use: plt.subplot(n_rows, 4, i+1)
- SEMPRE ajuste o tamanho: plt.figure(figsize=(16, 4*n_rows))

EXEMPLO CORRETO:
numeric_cols = df.select_dtypes(include=['number']).columns
n_cols = len(numeric_cols)
n_rows = (n_cols + 3) // 4
plt.figure(figsize=(16, 4*n_rows))
for i, col in enumerate(numeric_cols):
    plt.subplot(n_rows, 4, i+1)
    # seu código de visualização aqui

- Para datasets grandes, considere usar bins adequados nos histogramas (50+ bins)
- Termine SEMPRE com:
plt.savefig(img_path, dpi=150, bbox_inches='tight')
plt.close()
print({"answer": "descrição de como foi encontrada a resposta e por que essa abordagem foi usada (mencione que é baseada em todos os registros do dataset)"})

NÃO inclua explicações, apenas código funcional.
`)
	return b.String()
}

func textSystem(f Facts) string {
	var b strings.Builder
	b.WriteString("Você é um assistente de análise de dados.\n\n")
	writeFacts(&b, f)
	b.WriteString(`
REGRA IMPORTANTE:
- NÃO use pd.read_csv nem recarregue o dataset.
- O DataFrame já está disponível na variável df.
- Considere TODAS as colunas disponíveis, não apenas as primeiras.

REGRAS DE FORMATAÇÃO:
- Use Markdown para formatar a resposta
- Use **negrito** para destacar conceitos importantes
- Use numeração (1., 2., 3.) para listas organizadas
- Use bullets (- ou •) para sub-itens
- Use ` + "`código`" + ` para nomes de variáveis
- Seja conciso e bem estruturado

EXEMPLO DE FORMATO:
## Análise Descritiva

### 1. Variáveis Principais
- **Variável X**: Descrição da variável
- **Variável Y**: Descrição da variável

### 2. Distribuições
- A maioria das variáveis apresenta...

RESPONDA COM TEXTO EXPLICATIVO E MARKDOWN formatado.
Seja conciso e direto, sem incluir código Python.
Mencione que a análise é baseada em todos os registros do dataset.
`)
	return b.String()
}

func writeFacts(b *strings.Builder, f Facts) {
	fmt.Fprintf(b, "Dataset: (%d, %d) linhas/colunas\n", f.Info.RowCount, f.Info.ColumnCount)
	b.WriteString("Análise: TODOS os dados disponíveis para máxima precisão\n")
	names := f.Info.ColumnNames
	if len(names) == 0 {
		for _, c := range f.Columns {
			names = append(names, c.Name)
		}
	}
	fmt.Fprintf(b, "Colunas disponíveis: %s\n", pyList(names))
	if len(f.Columns) > 0 {
		b.WriteString("Tipos: ")
		for i, c := range f.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s=%s", c.Name, c.Kind)
		}
		b.WriteString("\n")
	}
}

// pyList renders names as a Python list literal, the form the generated code sees.
func pyList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + strings.ReplaceAll(strings.ReplaceAll(n, `\`, `\\`), "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// CleanProse keeps completion lines up to the first one that looks like code,
// drops blank lines and joins the rest with blank lines. It returns raw when
// nothing survives.
func CleanProse(raw string) string {
	markers := []string{"```", "import ", "plt.", "df.", "print("}
	var lines []string
outer:
	for _, line := range strings.Split(raw, "\n") {
		for _, m := range markers {
			if strings.Contains(line, m) {
				break outer
			}
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return raw
	}
	return strings.Join(lines, "\n\n")
}
