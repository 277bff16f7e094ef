package chat

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dfarias/incident-insights/index"
	"github.com/dfarias/incident-insights/llm"
)

// Engine answers questions about the dataset by retrieving synopsis
// fragments and prompting the language model. Questions are processed one
// at a time, synchronously, in arrival order.
type Engine struct {
	index     *index.Index
	graph     GraphStore
	llmClient llm.Client
	streets   []string
	logger    *log.Logger
}

type Config struct {
	RetrievalLimit int
}

// NewEngine wires a built index and an LLM client into an engine. graph may
// be nil; streets are the known street names used to pull graph insights
// when they show up in a question or its retrieved context.
func NewEngine(ix *index.Index, graph GraphStore, llmClient llm.Client, streets []string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		index:     ix,
		graph:     graph,
		llmClient: llmClient,
		streets:   streets,
		logger:    logger,
	}
}

// Ask runs one retrieval-augmented turn. On success the returned
// conversation holds only the latest user/assistant pair; on failure the
// input conversation is returned untouched so the caller may retry the
// same question.
func (e *Engine) Ask(ctx context.Context, conversation Conversation, question string, cfg Config) (Answer, Conversation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, conversation, fmt.Errorf("question cannot be empty")
	}
	if e.index == nil {
		return Answer{}, conversation, fmt.Errorf("knowledge index is not configured")
	}
	if e.llmClient == nil {
		return Answer{}, conversation, fmt.Errorf("llm client is not configured")
	}

	limit := cfg.RetrievalLimit
	if limit <= 0 {
		limit = index.DefaultSearchLimit
	}

	chunks, err := e.index.Search(ctx, question, limit)
	if err != nil {
		return Answer{}, conversation, err
	}

	insights := e.streetInsights(ctx, question, chunks)

	messages := make([]llm.Message, 0, len(conversation.Turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt()})
	messages = append(messages, conversation.Turns...)
	userMessage := llm.Message{Role: llm.RoleUser, Content: formatUserPrompt(question, contextPrompt(chunks, insights))}
	messages = append(messages, userMessage)

	generated, err := e.llmClient.Generate(ctx, messages)
	if err != nil {
		return Answer{}, conversation, &GenerationError{Err: err}
	}

	answer := strings.TrimSpace(generated)
	assistantMessage := llm.Message{Role: llm.RoleAssistant, Content: answer}

	// Bounded memory: keep only the latest exchange so the prompt stays
	// small across turns.
	updated := Conversation{Turns: []llm.Message{userMessage, assistantMessage}}

	return Answer{Text: answer, Context: chunks, Insights: insights}, updated, nil
}

// streetInsights queries the graph for streets mentioned in the question or
// in the retrieved context. Failures degrade the answer, not the turn.
func (e *Engine) streetInsights(ctx context.Context, question string, chunks []index.Chunk) map[string]StreetInsight {
	if e.graph == nil || len(e.streets) == 0 {
		return nil
	}

	var corpus strings.Builder
	corpus.WriteString(strings.ToLower(question))
	for _, chunk := range chunks {
		corpus.WriteString("\n")
		corpus.WriteString(strings.ToLower(chunk.Text))
	}
	haystack := corpus.String()

	mentioned := make([]string, 0)
	for _, street := range e.streets {
		if street == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(street)) {
			mentioned = append(mentioned, street)
		}
	}
	if len(mentioned) == 0 {
		return nil
	}

	insights, err := e.graph.StreetInsights(ctx, mentioned)
	if err != nil {
		e.logger.Printf("street insights error: %v", err)
		return nil
	}
	if len(insights) == 0 {
		return nil
	}
	return insights
}

func contextPrompt(chunks []index.Chunk, insights map[string]StreetInsight) string {
	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(strings.TrimSpace(chunk.Text))
		sb.WriteString("\n\n")
	}

	if len(insights) > 0 {
		streets := make([]string, 0, len(insights))
		for street := range insights {
			streets = append(streets, street)
		}
		sort.Strings(streets)

		sb.WriteString("Detalhes por logradouro:\n")
		for _, street := range streets {
			insight := insights[street]
			sb.WriteString(fmt.Sprintf("- %s: %d veículos envolvidos", street, insight.Total))
			if len(insight.ByVehicle) > 0 {
				vehicles := make([]string, 0, len(insight.ByVehicle))
				for vehicle := range insight.ByVehicle {
					vehicles = append(vehicles, vehicle)
				}
				sort.Strings(vehicles)

				parts := make([]string, 0, len(vehicles))
				for _, vehicle := range vehicles {
					parts = append(parts, fmt.Sprintf("%s: %d", vehicle, insight.ByVehicle[vehicle]))
				}
				sb.WriteString(" (" + strings.Join(parts, ", ") + ")")
			}
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func systemPrompt() string {
	return `Você é um assistente especializado em análise de dados de sinistros de trânsito, focado em analisar acidentes na Rodovia Raposo Tavares e regiões relacionadas entre 2021 e 2023.

Instruções específicas:
1. Ao analisar dados temporais:
   - Compare a evolução ano a ano
   - Identifique padrões mensais
   - Destaque tendências importantes

2. Ao analisar localização:
   - Indique os pontos mais críticos
   - Mencione KMs específicos quando relevante
   - Relacione com características da via

3. Ao analisar horários:
   - Compare períodos do dia
   - Diferencie dias úteis e fins de semana
   - Identifique horários de pico

4. Ao analisar tipos de veículos:
   - Compare diferentes categorias
   - Destaque os mais frequentes
   - Relacione com horários ou locais quando relevante

5. Para cada análise:
   - Forneça números específicos
   - Explique o significado dos dados
   - Sugira insights relevantes`
}

func formatUserPrompt(question, context string) string {
	var sb strings.Builder
	if strings.TrimSpace(context) != "" {
		sb.WriteString("Dados disponíveis:\n")
		sb.WriteString(context)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Pergunta: ")
	sb.WriteString(question)
	sb.WriteString("\n\nResponda de forma clara e direta, usando dados específicos para suportar suas análises. Se necessário, sugira a visualização de gráficos ou mapas relevantes.")
	return sb.String()
}
