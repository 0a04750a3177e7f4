package database

import (
	"fmt"
	"log"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

type seedVersion struct {
	content       string
	changeSummary string
}

type seedPrompt struct {
	title       string
	description string
	category    models.PromptCategory
	versions    []seedVersion
}

var seedPrompts = []seedPrompt{
	{
		title:       "Multi-Agent Research Coordinator",
		description: "Orchestrates a team of research agents to investigate a topic from multiple angles and produce a unified report.",
		category:    models.CategoryOrchestrator,
		versions: []seedVersion{
			{
				content:       "You are a research coordinator. Given a research topic, delegate sub-tasks to specialist agents: one for academic sources, one for industry reports, and one for recent news. Collect their findings and synthesize a unified report.",
				changeSummary: "Initial version",
			},
			{
				content:       "You are a research coordinator managing a team of specialist agents.\n\n## Your Role\nGiven a research topic, you must:\n1. Break the topic into 3-5 research angles\n2. Delegate each angle to the appropriate specialist agent:\n   - Academic Agent: peer-reviewed papers and citations\n   - Industry Agent: market reports and case studies\n   - News Agent: recent developments and trends\n3. Collect all findings\n4. Synthesize a unified report with proper attribution\n\n## Output Format\nReturn a structured JSON report with sections for each research angle, key findings, and a synthesis summary.",
				changeSummary: "Added structured delegation steps and output format",
			},
		},
	},
	{
		title:       "Customer Support Routing Agent",
		description: "Routes incoming customer support tickets to the appropriate specialist agent based on issue classification.",
		category:    models.CategoryOrchestrator,
		versions: []seedVersion{
			{
				content:       "You are a support ticket router. Classify incoming tickets into categories (billing, technical, account, general) and route each to the appropriate specialist agent. Monitor resolution progress and escalate if SLA thresholds are exceeded.",
				changeSummary: "Initial version",
			},
		},
	},
	{
		title:       "SQL Query Generator",
		description: "Generates optimized SQL queries from natural language descriptions of data requirements.",
		category:    models.CategoryTaskExecution,
		versions: []seedVersion{
			{
				content:       "You are a SQL expert. Given a natural language description of what data is needed, generate the appropriate SQL query. Use standard SQL syntax compatible with PostgreSQL.",
				changeSummary: "Initial version",
			},
			{
				content:       "You are a SQL Query Generator specialized in PostgreSQL.\n\n## Input\nYou will receive:\n- A natural language description of the desired data\n- The relevant table schemas (CREATE TABLE statements)\n- Any performance constraints or preferences\n\n## Rules\n1. Generate standard PostgreSQL-compatible SQL\n2. Use explicit JOIN syntax (never implicit joins)\n3. Always alias tables in multi-table queries\n4. Include appropriate WHERE clauses for filtering\n5. Use CTEs for complex queries instead of nested subqueries\n6. Add LIMIT clauses when result sets could be large\n7. Use parameterized placeholders ($1, $2) for user-provided values",
				changeSummary: "Added schema input, PostgreSQL specifics, CTEs, and parameterized queries",
			},
		},
	},
	{
		title:       "Error Message Improver",
		description: "Rewrites technical error messages into user-friendly, actionable messages.",
		category:    models.CategoryTaskExecution,
		versions: []seedVersion{
			{
				content:       "You improve error messages. Given a technical error message, rewrite it to be user-friendly, clear about what went wrong, and suggest how to fix it.",
				changeSummary: "Initial version",
			},
		},
	},
}

// Seed inserts the starter prompts unless the store already has prompts.
func (d *Database) Seed() error {
	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM prompts`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count prompts: %w", err)
	}
	if count > 0 {
		log.Printf("Skipping seed: store already has %d prompts", count)
		return nil
	}

	for _, sp := range seedPrompts {
		detail, err := d.CreatePrompt(&models.CreatePromptRequest{
			Title:       sp.title,
			Description: sp.description,
			Content:     sp.versions[0].content,
			Category:    sp.category,
		})
		if err != nil {
			return fmt.Errorf("failed to seed prompt %q: %w", sp.title, err)
		}

		lockVersion := detail.LockVersion
		for _, v := range sp.versions[1:] {
			content := v.content
			summary := v.changeSummary
			updated, err := d.UpdatePrompt(detail.ID, &models.UpdatePromptRequest{
				Content:       &content,
				ChangeSummary: summary,
				LockVersion:   lockVersion,
			})
			if err != nil {
				return fmt.Errorf("failed to seed version of %q: %w", sp.title, err)
			}
			lockVersion = updated.LockVersion
		}
	}

	log.Printf("Seeded %d prompts", len(seedPrompts))
	return nil
}
