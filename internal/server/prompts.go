package server

import "fmt"

type promptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

type promptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []promptArgument `json:"arguments,omitempty"`
}

type listPromptsResult struct {
	Prompts []promptDescriptor `json:"prompts"`
}

type promptMessage struct {
	Role    string       `json:"role"`
	Content contentBlock `json:"content"`
}

type getPromptResult struct {
	Messages []promptMessage `json:"messages"`
}

func listPrompts() listPromptsResult {
	return listPromptsResult{Prompts: []promptDescriptor{
		{
			Name:        "data-analysis",
			Description: "Analyze data from the operations database",
			Arguments: []promptArgument{
				{Name: "question", Description: "The analytical question to answer", Required: true},
			},
		},
		{
			Name:        "search-and-summarize",
			Description: "Search the web and summarize findings",
			Arguments: []promptArgument{
				{Name: "topic", Description: "Topic to search for", Required: true},
			},
		},
	}}
}

func getPrompt(name string, arguments map[string]string) (getPromptResult, error) {
	switch name {
	case "data-analysis":
		question := arguments["question"]
		text := fmt.Sprintf("You have access to an operations database. First use database_schema to understand the available tables, then write and execute SQL queries to answer this question:\n\n%s\n\nProvide a clear analysis with the data you find.", question)
		return getPromptResult{Messages: []promptMessage{
			{Role: "user", Content: contentBlock{Type: "text", Text: text}},
		}}, nil
	case "search-and-summarize":
		topic := arguments["topic"]
		text := fmt.Sprintf("Search the web for information about: %s\n\nSummarize your findings, citing sources where appropriate.", topic)
		return getPromptResult{Messages: []promptMessage{
			{Role: "user", Content: contentBlock{Type: "text", Text: text}},
		}}, nil
	default:
		return getPromptResult{}, fmt.Errorf("unknown prompt: %s", name)
	}
}
