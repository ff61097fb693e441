package engine

import (
	"encoding/json"
	"fmt"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// Prompt builders for the stage handlers. Each stage speaks as a senior
// specialist persona and, where the handler needs a structured result, pins
// the exact JSON shape expected back.

const analystPersona = `You are a senior business analyst with 15+ years of experience in software requirements engineering, specializing in agile methodologies, user story creation and acceptance criteria.
Analyze ONLY the requirements provided. Do not assume a domain or project type unless stated. Focus on user value, not technical implementation.`

const architectPersona = `You are a senior software architect with deep experience designing production systems.
You apply SOLID principles and clean architecture, and you size the design to the actual project scope rather than defaulting to enterprise patterns.`

const uxPersona = `You are a senior UX/UI designer with 15+ years of experience creating intuitive, accessible interfaces.
You produce design specifications developers can implement directly: personas, information architecture, design system, key screens, interaction design and accessibility guidelines.`

const developerPersona = `You are a senior full stack developer who ships small, working, well-structured projects.`

func validationPrompt(requirements string) string {
	return fmt.Sprintf(`%s

TASK: Decide whether the following requirements contain enough information to begin analysis.
Be practical: simple projects like "a basic calculator app" are sufficient. Do not demand enterprise-level detail.

REQUIREMENTS TO EVALUATE:
%s

Respond with ONLY a JSON object in this exact format:
{"sufficient": true/false, "reason": "brief explanation", "guidance": "if insufficient, 3-5 specific questions that would make the requirements analyzable; otherwise empty"}

Respond with only valid JSON, no other text.`, analystPersona, requirements)
}

func contextPrompt(requirements string) string {
	return fmt.Sprintf(`%s

Analyze the following project requirements and provide a JSON response with:
- project_type: what type of project this is (web app, mobile app, desktop software, automation tool, API service, etc.)
- domain: the business domain this project serves
- complexity: simple, moderate or complex
- user_type: who the target users are
- core_intent: the problem this project solves
- key_features: the main features needed

Requirements: %s

Respond with only valid JSON, no other text.`, analystPersona, requirements)
}

func refinedRequirementsPrompt(name, requirements string, projectContext map[string]any) string {
	ctxJSON, _ := json.Marshal(projectContext)
	return fmt.Sprintf(`%s

Generate refined requirements for the project %q based on these requirements:
%s

Context: %s

Produce: executive summary, core problem, functional requirements specific to the stated needs, non-functional requirements realistic for the scope, assumptions, and success metrics. Focus on what the user actually needs, not generic boilerplate.`,
		analystPersona, name, requirements, ctxJSON)
}

func userStoriesPrompt(name, requirements string, projectContext map[string]any) string {
	ctxJSON, _ := json.Marshal(projectContext)
	return fmt.Sprintf(`%s

Generate user stories for the project %q based on these requirements:
%s

Context: %s

Respond with ONLY a JSON array in this structure:
[{"id": "US-001", "title": "Story title", "description": "As a user, I want... so that...", "acceptance_criteria": ["criteria 1", "criteria 2"], "priority": "High/Medium/Low", "business_value": "what value this provides", "story_points": 1-8}]

Generate as many stories as the requirements need. Respond with only valid JSON, no other text.`,
		analystPersona, name, requirements, ctxJSON)
}

func architecturePrompt(p *domain.Project) string {
	return fmt.Sprintf(`%s

Design the system architecture for the project %q.

REQUIREMENTS:
%s

REFINED REQUIREMENTS:
%s

Produce: a component overview, data flow, technology considerations, integration points, security considerations, and scalability notes. Keep the design proportionate to the project scope.`,
		architectPersona, p.Name, p.Requirements, p.RefinedRequirements)
}

func uxDesignPrompt(p *domain.Project) string {
	return fmt.Sprintf(`%s

Create the UX/UI design specification for the project %q.

REFINED REQUIREMENTS:
%s

SYSTEM ARCHITECTURE:
%s

Cover: user personas and journeys, information architecture, design system (colors, typography, components), key screens, interaction design, and WCAG 2.1 AA accessibility guidelines.`,
		uxPersona, p.Name, p.RefinedRequirements, p.SystemArchitecture)
}

func techStackPrompt(p *domain.Project) string {
	return fmt.Sprintf(`%s

Analyze this project and determine the optimal tech stack.

PROJECT: %s
REQUIREMENTS: %s
REFINED REQUIREMENTS: %s
SYSTEM ARCHITECTURE: %s

CRITICAL: Return ONLY valid JSON with this exact structure:
{"project_type": "web_app", "tech_stack_reasoning": "explanation", "frontend": {"framework": "React.js", "language": "JavaScript", "styling": "CSS-in-JS"}, "backend": {"language": "Node.js", "framework": "Express.js"}, "database": {"type": "PostgreSQL"}, "deployment": {"platform": "Docker", "containerization": "Docker"}}

Use "None" for layers the project does not need (e.g. backend for a static site). No explanations, no markdown.`,
		developerPersona, p.Name, p.Requirements, p.RefinedRequirements, p.SystemArchitecture)
}

func folderStructurePrompt(p *domain.Project, stack *domain.TechStackDecision) string {
	stackJSON, _ := json.Marshal(stack)
	return fmt.Sprintf(`%s

Based on the tech stack, determine the project folder structure.

PROJECT: %s
TECH STACK: %s

Return ONLY a JSON array of folder paths to create, for example: ["src", "src/components", "config", "docs"].`,
		developerPersona, p.Name, stackJSON)
}

func filePrompt(p *domain.Project, stack *domain.TechStackDecision, describe string) string {
	stackJSON, _ := json.Marshal(stack)
	return fmt.Sprintf(`%s

%s

PROJECT: %s
REQUIREMENTS: %s
REFINED REQUIREMENTS: %s
SYSTEM ARCHITECTURE: %s
UX DESIGN: %s
TECH STACK: %s

Return ONLY the file content, no explanations and no markdown fences.`,
		developerPersona, describe, p.Name, p.Requirements, p.RefinedRequirements,
		p.SystemArchitecture, p.UXDesign, stackJSON)
}

func configFilePrompt(p *domain.Project, stack *domain.TechStackDecision, describe string) string {
	stackJSON, _ := json.Marshal(stack)
	return fmt.Sprintf(`%s

%s

PROJECT: %s
TECH STACK: %s

Return ONLY the file content, no explanations and no markdown fences.`,
		developerPersona, describe, p.Name, stackJSON)
}

func docsPrompt(p *domain.Project, stack *domain.TechStackDecision) string {
	stackJSON, _ := json.Marshal(stack)
	return fmt.Sprintf(`%s

Write the README.md for the generated project %q: overview, tech stack, setup instructions, and how to run it locally.

TECH STACK: %s

Return ONLY the markdown content.`, developerPersona, p.Name, stackJSON)
}
