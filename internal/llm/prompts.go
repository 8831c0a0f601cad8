package llm

// System prompt roles per narrative kind.
const (
	SystemTechnicalWriter = "You are an expert technical writer."
	SystemCodeAnalyst     = "You are an expert code analyst."
	SystemDevOpsEngineer  = "You are an expert DevOps engineer."
)

// MainNarrativePrompt is the template for the top-level README.
const MainNarrativePrompt = `You are an expert technical writer creating comprehensive README documentation for a software project.

Repository Information:
- Repository Name: %s
- Total Files: %d
- Code Files: %d
- Main Languages: %s

File Structure:
%s

Key Files Overview:
%s

Create a comprehensive README.md that includes:
1. Project title and brief description (infer from code structure)
2. Features (based on code analysis)
3. Technology stack (list all detected technologies)
4. Project structure overview
5. Installation instructions
6. Usage guide
7. Configuration (if config files detected)
8. Contributing guidelines
9. License information (if LICENSE file exists)

Make it professional, clear, and well-formatted in Markdown. Be specific and accurate based on the actual code.
`

// DirectoryNarrativePrompt is the template for a per-directory README.
const DirectoryNarrativePrompt = `Create a README.md for the following directory in a codebase:

Directory: %s
Purpose: %s

Files in this directory:
%s

Code snippets from key files:
%s

Create a concise README.md that explains:
1. Purpose of this directory
2. Key files and their roles
3. How this directory fits into the larger project
4. Any important patterns or conventions used

Keep it focused and practical. Use Markdown formatting.
`

// FileNarrativePrompt is the template for a selected-file deep dive.
const FileNarrativePrompt = `Analyze and explain the following code:

File: %s
Language: %s

Code:
` + "```" + `%s
%s
` + "```" + `

Provide a detailed explanation including:
1. Overview of what this file does
2. Key functions/classes and their purposes
3. Important dependencies and imports
4. Design patterns or architectural decisions
5. Any notable algorithms or logic

Format as Markdown with clear sections. Be technical but accessible.
`

// SetupNarrativePrompt is the template for the how-to-run guide.
const SetupNarrativePrompt = `Create a "How to Run" guide for this project.

Project Information:
- Languages: %s
- Package Managers: %s
- Frameworks: %s

Configuration Files Found:
%s

Dependencies:
%s

Create a step-by-step guide including:
1. Prerequisites (required software, versions)
2. Installation steps
3. Configuration setup
4. Running the application (development mode)
5. Running tests (if test files found)
6. Building for production (if applicable)
7. Common troubleshooting tips

Be specific with actual commands based on the detected technologies.
`
