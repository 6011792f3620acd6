// Package contract implements the behavior contract: the immutable,
// structured specification of an agent's persona, scope, tool usage rules,
// response format and uncertainty handling. The contract is validated once
// at construction and rendered deterministically into every reasoning
// engine request.
package contract

import (
	"fmt"
	"strings"
)

// Section headers used by Render, in fixed order.
const (
	headerPersona     = "## PERSONA"
	headerScope       = "## SCOPE"
	headerToolUsage   = "## TOOL USAGE RULES"
	headerFormat      = "## RESPONSE FORMAT"
	headerUncertainty = "## BEHAVIOUR UNDER UNCERTAINTY"
)

// Config carries the five named sections plus the two literal strings the
// orchestration loop may return verbatim without consulting the engine.
// Refusal is the exact out-of-scope reply belonging to the scope section;
// Fallback is the exact missing-data reply belonging to the uncertainty
// section.
type Config struct {
	Persona           string `yaml:"persona"`
	Scope             string `yaml:"scope"`
	Refusal           string `yaml:"refusal"`
	ToolUsageRules    string `yaml:"tool_usage_rules"`
	ResponseFormat    string `yaml:"response_format"`
	UncertaintyPolicy string `yaml:"uncertainty_policy"`
	Fallback          string `yaml:"fallback"`
}

// MalformedContractError reports an invalid contract at construction time.
// It is fatal: an agent must not serve traffic with a malformed contract.
type MalformedContractError struct {
	Section string
	Reason  string
}

func (e *MalformedContractError) Error() string {
	return fmt.Sprintf("malformed contract section %q: %s", e.Section, e.Reason)
}

// Contract is the validated, immutable behavior contract. The rendered
// form is computed once so identical section content always renders
// byte-for-byte identically.
type Contract struct {
	cfg      Config
	rendered string
}

// New validates the sections and builds the contract. Every section must be
// non-empty, and the refusal and fallback strings must be literal (no
// template markers), because the loop returns them verbatim.
func New(cfg Config) (*Contract, error) {
	sections := []struct {
		name  string
		value string
	}{
		{"persona", cfg.Persona},
		{"scope", cfg.Scope},
		{"refusal", cfg.Refusal},
		{"tool_usage_rules", cfg.ToolUsageRules},
		{"response_format", cfg.ResponseFormat},
		{"uncertainty_policy", cfg.UncertaintyPolicy},
		{"fallback", cfg.Fallback},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.value) == "" {
			return nil, &MalformedContractError{Section: s.name, Reason: "must not be empty"}
		}
	}
	for _, s := range []struct {
		name  string
		value string
	}{
		{"refusal", cfg.Refusal},
		{"fallback", cfg.Fallback},
	} {
		if err := checkLiteral(s.name, s.value); err != nil {
			return nil, err
		}
	}

	c := &Contract{cfg: cfg}
	c.rendered = c.render()

	return c, nil
}

func checkLiteral(name, value string) error {
	for _, marker := range []string{"{{", "}}", "${", "%s", "%d", "%v"} {
		if strings.Contains(value, marker) {
			return &MalformedContractError{
				Section: name,
				Reason:  fmt.Sprintf("must be a literal string, found template marker %q", marker),
			}
		}
	}
	return nil
}

// render concatenates the sections under stable headers in fixed order.
func (c *Contract) render() string {
	var b strings.Builder

	section := func(header string, bodies ...string) {
		b.WriteString(header)
		b.WriteString("\n")
		for _, body := range bodies {
			b.WriteString(strings.TrimSpace(body))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	section(headerPersona, c.cfg.Persona)
	section(headerScope, c.cfg.Scope,
		fmt.Sprintf("If a question is outside this scope, respond exactly:\n  %q", c.cfg.Refusal))
	section(headerToolUsage, c.cfg.ToolUsageRules)
	section(headerFormat, c.cfg.ResponseFormat)
	section(headerUncertainty, c.cfg.UncertaintyPolicy,
		fmt.Sprintf("If required data is missing, respond exactly:\n  %q", c.cfg.Fallback))

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Render returns the composed contract text. The output is identical across
// calls for the same contract, which keeps agent behavior reproducible from
// contract + history + tool catalog alone.
func (c *Contract) Render() string { return c.rendered }

// Refusal returns the literal out-of-scope reply.
func (c *Contract) Refusal() string { return c.cfg.Refusal }

// Fallback returns the literal missing-data reply the loop emits when the
// iteration budget is exhausted.
func (c *Contract) Fallback() string { return c.cfg.Fallback }
