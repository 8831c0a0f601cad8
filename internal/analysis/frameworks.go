package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// detectFrameworks applies the manifest-file heuristics for the common
// ecosystems. Misses are acceptable; this only seeds narrative prompts.
func detectFrameworks(repoPath string) []string {
	frameworks := map[string]struct{}{}

	if deps := readPackageJSONDeps(repoPath); deps != nil {
		nodeFrameworks := map[string]string{
			"react":         "React",
			"next":          "Next.js",
			"vue":           "Vue.js",
			"angular":       "Angular",
			"@angular/core": "Angular",
			"express":       "Express.js",
			"fastify":       "Fastify",
		}
		for dep, name := range nodeFrameworks {
			if _, ok := deps[dep]; ok {
				frameworks[name] = struct{}{}
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join(repoPath, "requirements.txt")); err == nil {
		content := strings.ToLower(string(data))
		pyFrameworks := map[string]string{
			"django":     "Django",
			"flask":      "Flask",
			"fastapi":    "FastAPI",
			"tensorflow": "TensorFlow",
			"torch":      "PyTorch",
		}
		for marker, name := range pyFrameworks {
			if strings.Contains(content, marker) {
				frameworks[name] = struct{}{}
			}
		}
	}

	if _, err := os.Stat(filepath.Join(repoPath, "go.mod")); err == nil {
		frameworks["Go"] = struct{}{}
	}

	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectPackageManagers reports the package managers evidenced by manifest files.
func DetectPackageManagers(repoPath string) []string {
	var managers []string
	checks := []struct {
		file    string
		manager string
	}{
		{"package.json", "npm/yarn"},
		{"requirements.txt", "pip"},
		{"Cargo.toml", "cargo"},
		{"go.mod", "go modules"},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(repoPath, c.file)); err == nil {
			managers = append(managers, c.manager)
		}
	}
	if len(managers) == 0 {
		return []string{"Unknown"}
	}
	return managers
}

// DetectConfigFiles lists well-known configuration files present at the root.
func DetectConfigFiles(repoPath string) []string {
	patterns := []string{
		"package.json", "requirements.txt", "Cargo.toml", "go.mod",
		"pom.xml", "build.gradle", ".env.example", "docker-compose.yml",
		"Dockerfile", "tsconfig.json", "webpack.config.js",
	}
	var found []string
	for _, p := range patterns {
		if _, err := os.Stat(filepath.Join(repoPath, p)); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// ExtractDependencySummary returns a bounded per-ecosystem dependency digest
// for the setup narrative prompt.
func ExtractDependencySummary(repoPath string) string {
	const maxPerEcosystem = 5
	var parts []string

	if data, err := os.ReadFile(filepath.Join(repoPath, "requirements.txt")); err == nil {
		var deps []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			deps = append(deps, line)
			if len(deps) == maxPerEcosystem {
				break
			}
		}
		if len(deps) > 0 {
			parts = append(parts, "Python: "+strings.Join(deps, ", "))
		}
	}

	if deps := readPackageJSONDeps(repoPath); len(deps) > 0 {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > maxPerEcosystem {
			names = names[:maxPerEcosystem]
		}
		parts = append(parts, "Node: "+strings.Join(names, ", "))
	}

	if len(parts) == 0 {
		return "No dependencies file found"
	}
	return strings.Join(parts, "\n")
}

func readPackageJSONDeps(repoPath string) map[string]string {
	data, err := os.ReadFile(filepath.Join(repoPath, "package.json"))
	if err != nil {
		return nil
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	deps := map[string]string{}
	for k, v := range manifest.Dependencies {
		deps[k] = v
	}
	for k, v := range manifest.DevDependencies {
		deps[k] = v
	}
	return deps
}
