package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed assistant_prompt.yaml
var defaultAssistantPrompt []byte

// AssistantPromptConfig describes the persona and rules of the shopping assistant.
type AssistantPromptConfig struct {
	Assistant struct {
		Name    string `yaml:"name"`
		Role    string `yaml:"role"`
		Purpose string `yaml:"purpose"`
	} `yaml:"assistant"`

	ResponseGuidelines []struct {
		Priority  int    `yaml:"priority"`
		Condition string `yaml:"condition"`
		Action    string `yaml:"action"`
	} `yaml:"response_guidelines"`

	Tone struct {
		Style       string `yaml:"style"`
		Personality string `yaml:"personality"`
	} `yaml:"tone"`

	Constraints []string `yaml:"constraints"`

	SpecialCommands struct {
		Help struct {
			Trigger  []string `yaml:"trigger"`
			Response string   `yaml:"response"`
		} `yaml:"help"`
	} `yaml:"special_commands"`
}

// LoadAssistantPrompt reads the prompt config from path, or the bundled default when path is empty.
func LoadAssistantPrompt(path string) (*AssistantPromptConfig, error) {
	data := defaultAssistantPrompt
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read assistant prompt file: %w", err)
		}
	}

	var cfg AssistantPromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse assistant prompt YAML: %w", err)
	}
	if cfg.Assistant.Name == "" {
		return nil, fmt.Errorf("assistant prompt is missing assistant.name")
	}
	return &cfg, nil
}

// BuildSystemPrompt renders the system message sent with every chat completion.
func (c *AssistantPromptConfig) BuildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %s, %s.\n", c.Assistant.Name, c.Assistant.Role))
	if c.Assistant.Purpose != "" {
		sb.WriteString(c.Assistant.Purpose + "\n")
	}
	sb.WriteString("\n")

	if len(c.ResponseGuidelines) > 0 {
		sb.WriteString("## Response guidelines\n")
		for _, g := range c.ResponseGuidelines {
			sb.WriteString(fmt.Sprintf("%d. %s -> %s\n", g.Priority, g.Condition, g.Action))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Tone\n")
	sb.WriteString(fmt.Sprintf("- Style: %s\n", c.Tone.Style))
	sb.WriteString(fmt.Sprintf("- Personality: %s\n", c.Tone.Personality))

	if len(c.Constraints) > 0 {
		sb.WriteString("\n## Constraints\n")
		for _, constraint := range c.Constraints {
			sb.WriteString(fmt.Sprintf("- %s\n", constraint))
		}
	}

	sb.WriteString("\nProvide helpful, concise responses to shopping-related queries.\n")
	return sb.String()
}

// CheckSpecialCommand returns the canned reply when message triggers a special command.
func (c *AssistantPromptConfig) CheckSpecialCommand(message string) (bool, string) {
	lowerMsg := strings.ToLower(strings.TrimSpace(message))

	for _, trigger := range c.SpecialCommands.Help.Trigger {
		if strings.Contains(lowerMsg, strings.ToLower(trigger)) {
			return true, c.SpecialCommands.Help.Response
		}
	}
	return false, ""
}
