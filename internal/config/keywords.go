package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Keywords holds the heuristic keyword sets driving discovery, filtering,
// form detection, and email classification. These are configuration data,
// not algorithms; operators can override them wholesale with a YAML file.
type Keywords struct {
	// QueryTemplates are search query variants; {name} is replaced with the
	// organization name. Tried in order during site resolution.
	QueryTemplates []string `yaml:"query_templates"`

	// LinkKeywords qualify a hyperlink as a candidate contact page when any
	// of them is a substring of the link's href or visible text.
	LinkKeywords []string `yaml:"link_keywords"`

	// PageBlacklist drops discovered URLs unless a PageAllowlist keyword is
	// also present. The reconcile sweep applies PageBlacklist unconditionally.
	PageBlacklist []string `yaml:"page_blacklist"`
	PageAllowlist []string `yaml:"page_allowlist"`

	// FormKeywords mark a form as sponsorship-related when found in its
	// field names or placeholders.
	FormKeywords []string `yaml:"form_keywords"`

	// RelevantEmail / IrrelevantEmail drive the email classification pass.
	RelevantEmail   []string `yaml:"relevant_email"`
	IrrelevantEmail []string `yaml:"irrelevant_email"`
}

// DefaultKeywords returns the built-in keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		QueryTemplates: []string{
			"{name} official site",
			"{name} contact information",
			"{name} corporate social responsibility",
			"{name} community support",
			"{name} foundation grants",
			"{name} sponsorship request",
			"{name} how to apply for sponsorship",
			"{name} email phone contact page",
		},
		LinkKeywords: []string{
			"contact", "sponsor", "partner", "apply", "nonprofit", "501(c)(3)",
			"grant", "foundation", "youth", "first frc", "about", "community",
			"social responsibility",
		},
		PageBlacklist: []string{
			"job", "career", "news", "media", "press", "login", "signin",
			"shop", "product",
		},
		PageAllowlist: []string{
			"contact", "sponsor", "about", "community",
		},
		FormKeywords: []string{
			"sponsor", "sponsorship", "donation", "donate", "grant", "partner",
			"organization", "nonprofit", "charity", "request",
		},
		RelevantEmail: []string{
			"grant", "fund", "sponsor", "youth", "stem", "education",
			"robotics", "student", "nonprofit", "outreach", "school",
			"scholarship",
		},
		IrrelevantEmail: []string{
			"support", "help", "service", "order", "vendor", "supplier",
			"media", "press", "investor", "invest", "returns", "billing",
			"invoice", "ads", "info", "sales", "marketing",
		},
	}
}

// LoadKeywordsFile reads keyword sets from a YAML file. Lists absent from
// the file keep their built-in defaults.
func LoadKeywordsFile(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, eris.Wrapf(err, "config: read keywords file %s", path)
	}

	kw := DefaultKeywords()
	var override Keywords
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Keywords{}, eris.Wrapf(err, "config: parse keywords file %s", path)
	}

	if len(override.QueryTemplates) > 0 {
		kw.QueryTemplates = override.QueryTemplates
	}
	if len(override.LinkKeywords) > 0 {
		kw.LinkKeywords = override.LinkKeywords
	}
	if len(override.PageBlacklist) > 0 {
		kw.PageBlacklist = override.PageBlacklist
	}
	if len(override.PageAllowlist) > 0 {
		kw.PageAllowlist = override.PageAllowlist
	}
	if len(override.FormKeywords) > 0 {
		kw.FormKeywords = override.FormKeywords
	}
	if len(override.RelevantEmail) > 0 {
		kw.RelevantEmail = override.RelevantEmail
	}
	if len(override.IrrelevantEmail) > 0 {
		kw.IrrelevantEmail = override.IrrelevantEmail
	}

	return kw, nil
}
