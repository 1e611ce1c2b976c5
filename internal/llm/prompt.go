package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mzubac125/azure-sql-chatbot/internal/answer"
	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
	"github.com/Mzubac125/azure-sql-chatbot/internal/tools"
)

// TableHint tells the model which table to use for which kind of question.
type TableHint struct {
	Name string `yaml:"name"`
	Use  string `yaml:"use"`
}

// PromptProfile is the deployment-specific part of the system prompt.
type PromptProfile struct {
	DialectHint string      `yaml:"dialect_hint"`
	Tables      []TableHint `yaml:"tables"`
	ExtraRules  []string    `yaml:"extra_rules"`
}

// DefaultProfile describes the Members/BankAccounts deployment.
func DefaultProfile() PromptProfile {
	return PromptProfile{
		Tables: []TableHint{
			{Name: "BankAccounts", Use: "used for bank account data"},
			{Name: "members", Use: "use this for any questions regarding members and profit"},
		},
	}
}

// LoadProfile reads a YAML prompt profile. An empty path returns the default.
func LoadProfile(path string) (PromptProfile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptProfile{}, fmt.Errorf("read prompt profile: %w", err)
	}
	var p PromptProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return PromptProfile{}, fmt.Errorf("parse prompt profile %s: %w", path, err)
	}
	for i, t := range p.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return PromptProfile{}, fmt.Errorf("parse prompt profile %s: tables[%d] has no name", path, i)
		}
	}
	return p, nil
}

// BuildSystemPrompt constructs the agent instructions for the given dialect.
func BuildSystemPrompt(d database.Dialect, profile PromptProfile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an agent designed to interact with a %s database.\n", d.DisplayName())
	sb.WriteString("Given an input question, create a syntactically correct SQL query to run, run it, and answer from its results.\n\n")

	quoting := "Quote table and column names with double quotes when they need quoting."
	if d.BracketIdentifiers() {
		quoting = "Use square brackets [ ] for table and column names in your SQL."
	}
	if profile.DialectHint != "" {
		quoting = profile.DialectHint
	}

	rules := []string{
		"First, create and execute the SQL query to get the data.",
		"Then, format the results in a natural, easy-to-read way.",
		"Make sure you go through all of the rows in the result.",
		quoting,
		fmt.Sprintf("Format your response EXACTLY like this example (including the dashes and spacing):\n   %q", exampleAnswer()),
		"DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.",
		"DO NOT show the SQL query in your response.",
		fmt.Sprintf("DO NOT add any text before %q.", answer.Header),
		"DO NOT add any text after the last result.",
		"DO NOT add any line breaks between results.",
		"DO NOT add any additional formatting or special characters.",
		"Use a colon (:) to separate the label from its value.",
		"The results must have commas between them.",
		"For profit calculations, use SUM() to get total profits.",
		"For counts, use COUNT() to get accurate numbers.",
		"Order by greatest to least for counts and sums.",
		"If the question is ambiguous or the data needed to answer it does not exist, say so plainly instead of the results format.",
	}
	rules = append(rules, profile.ExtraRules...)

	sb.WriteString("IMPORTANT:\n")
	for i, r := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}

	sb.WriteString("\nBefore generating a query:\n")
	steps := []string{
		fmt.Sprintf("First check what tables are available using %s.", tools.ListTablesName),
		fmt.Sprintf("Then check the schema of relevant tables using %s.", tools.SchemaName),
		"Use the correct table and column names in your query.",
		fmt.Sprintf("Validate the query with %s, then run it with %s.", tools.QueryCheckerName, tools.QueryName),
		"Verify the query results before formatting the response.",
	}
	for i, s := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}

	if len(profile.Tables) > 0 {
		sb.WriteString("\nTables:\n")
		for _, t := range profile.Tables {
			if t.Use == "" {
				fmt.Fprintf(&sb, "-%s\n", t.Name)
				continue
			}
			fmt.Fprintf(&sb, "-%s (%s)\n", t.Name, t.Use)
		}
	}

	return sb.String()
}

func exampleAnswer() string {
	return answer.Format([]answer.Line{
		{Label: "Downtown branch", Value: "5 accounts"},
		{Label: "Uptown branch", Value: "3 accounts"},
		{Label: "Midtown branch", Value: "2 accounts"},
	})
}
