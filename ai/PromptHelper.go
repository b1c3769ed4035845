package ai

import (
	"fmt"
	"strings"

	"querypilot/models"
)

// Roughly what fits in the text model's context; retrieved context past this
// budget is left out of the prompt.
const promptCharBudget = 14000 * 4

// Rows shown to the model when it is allowed to see query results.
const previewRows = 25

// Message is one role-tagged part of a prompt.
type Message struct {
	Role    string
	Content string
}

func SystemMessage(content string) Message    { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message      { return Message{Role: "user", Content: content} }
func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }

// RenderPrompt flattens messages into the single text prompt a completion
// model accepts. Empty messages are skipped.
func RenderPrompt(messages []Message) string {
	var promptBuilder strings.Builder
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if promptBuilder.Len() > 0 {
			promptBuilder.WriteString("\n\n")
		}
		promptBuilder.WriteString(m.Role)
		promptBuilder.WriteString(": ")
		promptBuilder.WriteString(strings.TrimSpace(m.Content))
	}
	return promptBuilder.String()
}

// QuestionSQL is a trained question with the SQL that answers it.
type QuestionSQL struct {
	Question string
	SQL      string
}

// SQLPromptInput is everything retrieved for one SQL generation.
type SQLPromptInput struct {
	Dialect       string
	Question      string
	Examples      []QuestionSQL
	DDL           []string
	Documentation []string
	// IntermediateResults are previews of intermediate queries the model asked for.
	IntermediateResults []string
}

// BuildSQLPrompt constructs a prompt for SQL generation from retrieved schema,
// documentation and similar answered questions.
func BuildSQLPrompt(in SQLPromptInput) []Message {
	dialect := in.Dialect
	if dialect == "" {
		dialect = "SQL"
	}

	var contextBuilder strings.Builder
	contextBuilder.WriteString(fmt.Sprintf("You are a %s expert. Write a SQL query that answers the user's question. ", dialect))
	contextBuilder.WriteString("Base the answer only on the context below and follow the response guidelines.\n")

	budget := promptCharBudget - len(in.Question)
	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		header := fmt.Sprintf("\n=== %s\n", title)
		wroteHeader := false
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item == "" || len(item)+len(header) > budget {
				continue
			}
			if !wroteHeader {
				contextBuilder.WriteString(header)
				budget -= len(header)
				wroteHeader = true
			}
			contextBuilder.WriteString(item)
			contextBuilder.WriteString("\n\n")
			budget -= len(item) + 2
		}
	}
	writeSection("Tables", in.DDL)
	writeSection("Additional Context", in.Documentation)
	writeSection("Intermediate Results", in.IntermediateResults)

	contextBuilder.WriteString("\n=== Response Guidelines\n")
	contextBuilder.WriteString("1. If the context is sufficient, reply with a valid SQL query and no explanation.\n")
	if len(in.IntermediateResults) == 0 {
		contextBuilder.WriteString("2. If the context is almost sufficient but you need the distinct values of a specific column, ")
		contextBuilder.WriteString("reply with an intermediate SQL query that lists them, starting with the comment -- intermediate_sql\n")
	} else {
		contextBuilder.WriteString("2. Intermediate results are already included above; reply with the final query.\n")
	}
	contextBuilder.WriteString("3. If the context is insufficient, explain why the query cannot be written.\n")
	contextBuilder.WriteString("4. Use the most relevant table(s).\n")
	contextBuilder.WriteString("5. If the question was answered before, repeat that answer exactly.\n")
	contextBuilder.WriteString(fmt.Sprintf("6. The query must be %s-compliant, executable and free of syntax errors.\n", dialect))

	messages := []Message{SystemMessage(contextBuilder.String())}
	for _, example := range in.Examples {
		if example.Question == "" || example.SQL == "" {
			continue
		}
		if len(example.Question)+len(example.SQL) > budget {
			break
		}
		budget -= len(example.Question) + len(example.SQL)
		messages = append(messages, UserMessage(example.Question), AssistantMessage(example.SQL))
	}
	return append(messages, UserMessage(in.Question))
}

// BuildIntermediateResult formats the rows of an intermediate query for the follow-up SQL prompt.
func BuildIntermediateResult(sql string, result models.QueryResult) string {
	return fmt.Sprintf("Results of the intermediate query\n%s\n\n%s", sql, result.Markdown(previewRows))
}

// BuildPlotPrompt asks for a JSON chart spec over the columns of result.
func BuildPlotPrompt(question, sql string, result models.QueryResult) []Message {
	var promptBuilder strings.Builder
	if question != "" {
		promptBuilder.WriteString(fmt.Sprintf("The user asked: '%s'\n\n", question))
	}
	if sql != "" {
		promptBuilder.WriteString(fmt.Sprintf("The query that answered it was:\n%s\n\n", sql))
	}
	promptBuilder.WriteString("The result has these columns:\n")
	for i, column := range result.Columns {
		columnType := "unknown"
		if i < len(result.ColumnTypes) && result.ColumnTypes[i] != "" {
			columnType = result.ColumnTypes[i]
		}
		kind := "text"
		if result.IsNumericColumn(i) {
			kind = "numeric"
		}
		promptBuilder.WriteString(fmt.Sprintf("- %s (%s, %s)\n", column, columnType, kind))
	}
	promptBuilder.WriteString(fmt.Sprintf("Total rows: %d\n", result.RowCount()))

	var instructions strings.Builder
	instructions.WriteString("Describe one chart for this result as a JSON object with these fields:\n")
	instructions.WriteString(`{"type": "bar|line|scatter|pie|histogram", "title": "...", "x": "<column>", "y": ["<column>", ...], "color": "<optional column>", "derived": [{"name": "<new column>", "expression": "<arithmetic over column names>"}]}`)
	instructions.WriteString("\nUse only the column names listed above or names introduced in derived. ")
	instructions.WriteString("If there is only one value, prefer a bar chart. ")
	instructions.WriteString("Return ONLY the JSON object without any markdown code blocks or explanations.")

	return []Message{SystemMessage(promptBuilder.String()), UserMessage(instructions.String())}
}

// BuildFollowupPrompt asks for up to n follow-up questions about a result.
func BuildFollowupPrompt(question, sql string, result models.QueryResult, n int) []Message {
	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a helpful data assistant. ")
	promptBuilder.WriteString(fmt.Sprintf("The user asked the question: '%s'\n\n", question))
	promptBuilder.WriteString(fmt.Sprintf("The SQL query for this question was:\n%s\n\n", sql))
	promptBuilder.WriteString("These are the results of the query:\n")
	promptBuilder.WriteString(result.Markdown(previewRows))

	var instructions strings.Builder
	instructions.WriteString(fmt.Sprintf("Generate a list of %d follow-up questions the user might ask about this data. ", n))
	instructions.WriteString("Respond with one question per line and no explanations. ")
	instructions.WriteString("Each question must map to exactly one unambiguous SQL query and be answerable outside this conversation. ")
	instructions.WriteString("Prefer small changes to the query above that dig deeper into the data. ")
	instructions.WriteString("Each question becomes a button that runs a new query, so avoid 'for example' style questions.")

	return []Message{SystemMessage(promptBuilder.String()), UserMessage(instructions.String())}
}

// BuildSummaryPrompt asks for a short summary of a result in terms of the question.
func BuildSummaryPrompt(question string, result models.QueryResult) []Message {
	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a helpful data assistant. ")
	promptBuilder.WriteString(fmt.Sprintf("The user asked the question: '%s'\n\n", question))
	promptBuilder.WriteString("These are the results of the query:\n")
	promptBuilder.WriteString(result.Markdown(previewRows))

	return []Message{
		SystemMessage(promptBuilder.String()),
		UserMessage("Briefly summarize the data based on the question that was asked. Do not add any explanation beyond the summary."),
	}
}
