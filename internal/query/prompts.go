package query

import "strings"

// #region query-type
// QueryType selects which prompt template steers the generation model.
type QueryType int

const (
	Geral QueryType = iota
	Processo
	Legislacao
	Jurisprudencia
)

func (t QueryType) String() string {
	switch t {
	case Processo:
		return "processo"
	case Legislacao:
		return "legislacao"
	case Jurisprudencia:
		return "jurisprudencia"
	default:
		return "geral"
	}
}

// ParseQueryType maps a category name to its QueryType. Unrecognized names
// fall back to Geral: the category only selects a template, so an unknown
// value must not fail the query.
func ParseQueryType(s string) QueryType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processo":
		return Processo
	case "legislacao":
		return Legislacao
	case "jurisprudencia":
		return Jurisprudencia
	default:
		return Geral
	}
}

// #endregion query-type

// #region templates
const promptProcesso = `Você é um assistente jurídico especializado em análise processual.

Contexto jurídico relevante:
%CONTEXT%

Pergunta sobre processo: %QUESTION%

Instruções:
1. Analise o contexto fornecido cuidadosamente
2. Responda de forma precisa e fundamentada juridicamente
3. Cite as fontes legais relevantes quando possível
4. Se não houver informação suficiente, indique claramente
5. Use linguagem jurídica apropriada mas acessível

Resposta:`

const promptLegislacao = `Você é um assistente jurídico especializado em legislação brasileira.

Legislação e normas relevantes:
%CONTEXT%

Pergunta sobre legislação: %QUESTION%

Instruções:
1. Baseie sua resposta nas normas jurídicas fornecidas
2. Explique os artigos e dispositivos legais aplicáveis
3. Indique hierarquia normativa quando relevante
4. Mencione eventuais alterações ou revogações
5. Forneça interpretação jurídica fundamentada

Resposta:`

const promptJurisprudencia = `Você é um assistente jurídico especializado em jurisprudência.

Precedentes e decisões judiciais relevantes:
%CONTEXT%

Pergunta sobre jurisprudência: %QUESTION%

Instruções:
1. Analise os precedentes apresentados
2. Explique as teses jurídicas predominantes
3. Indique possíveis divergências entre tribunais
4. Contextualize com a legislação aplicável
5. Avalie a aplicabilidade ao caso concreto

Resposta:`

const promptGeral = `Você é um assistente jurídico especializado em Direito brasileiro.

Informações jurídicas relevantes:
%CONTEXT%

Pergunta: %QUESTION%

Instruções:
1. Forneça resposta fundamentada juridicamente
2. Use fontes confiáveis (leis, jurisprudência, doutrina)
3. Seja preciso e objetivo
4. Indique limitações ou necessidade de análise adicional
5. Mantenha linguagem técnica mas compreensível

Resposta:`

// #endregion templates

// #region render
// Template returns the fixed prompt template for a category.
func (t QueryType) Template() string {
	switch t {
	case Processo:
		return promptProcesso
	case Legislacao:
		return promptLegislacao
	case Jurisprudencia:
		return promptJurisprudencia
	default:
		return promptGeral
	}
}

// Render fills the category template with context and question.
func (t QueryType) Render(context, question string) string {
	prompt := strings.ReplaceAll(t.Template(), "%CONTEXT%", context)
	return strings.ReplaceAll(prompt, "%QUESTION%", question)
}

// #endregion render
