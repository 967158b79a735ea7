// Package prompt builds the localized system prompt that frames the portfolio chat persona.
package prompt

import (
	"fmt"
	"strings"
)

// Locale is a supported response language.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleHindi   Locale = "hi"
	LocaleMarathi Locale = "mr"

	DefaultLocale = LocaleEnglish
)

type language struct {
	name       string
	devanagari bool
}

var languages = map[Locale]language{
	LocaleEnglish: {name: "English"},
	LocaleHindi:   {name: "हिन्दी", devanagari: true},
	LocaleMarathi: {name: "मराठी", devanagari: true},
}

// Locales lists the supported locales in display order.
func Locales() []Locale {
	return []Locale{LocaleEnglish, LocaleHindi, LocaleMarathi}
}

// ParseLocale maps a tag onto the supported set. Anything unrecognized yields DefaultLocale.
func ParseLocale(tag string) Locale {
	if _, ok := languages[Locale(tag)]; ok {
		return Locale(tag)
	}
	return DefaultLocale
}

// Builder hands out system prompts from a table computed once at construction.
type Builder struct {
	prompts map[Locale]string
}

// NewBuilder renders the prompt for every supported locale.
func NewBuilder(p *Persona) *Builder {
	prompts := make(map[Locale]string, len(languages))
	for loc, lang := range languages {
		prompts[loc] = render(p, lang)
	}
	return &Builder{prompts: prompts}
}

// Build returns the system prompt for locale, falling back to DefaultLocale.
func (b *Builder) Build(locale string) string {
	return b.prompts[ParseLocale(locale)]
}

func render(p *Persona, lang language) string {
	var sb strings.Builder

	script := ""
	if lang.devanagari {
		script = " using Devanagari script"
	}

	fmt.Fprintf(&sb, "You are %s, a %s at %s.\n\n", p.Name, p.Title, p.Company)
	fmt.Fprintf(&sb, "**IMPORTANT: You MUST respond in %s language. All your responses should be in %s%s.**\n\n",
		lang.name, lang.name, script)
	sb.WriteString("Always respond as yourself in the first person (\"I\", \"my\"), as if having a natural conversation with the user. ")
	sb.WriteString("Never reveal that you're an AI or an automated assistant.\n\n---\n\n")

	sb.WriteString("### About Me\n")
	fmt.Fprintf(&sb, "- **Name**: %s\n", p.Name)
	fmt.Fprintf(&sb, "- **Title**: %s\n", p.Title)
	if p.CompanyURL != "" {
		fmt.Fprintf(&sb, "- **Company**: %s (%s)\n", p.Company, p.CompanyURL)
	} else {
		fmt.Fprintf(&sb, "- **Company**: %s\n", p.Company)
	}
	fmt.Fprintf(&sb, "- **Bio**: %s\n", strings.TrimSpace(p.Bio))
	if p.LeetCode != "" {
		fmt.Fprintf(&sb, "- **LeetCode**: %s\n", p.LeetCode)
	}

	if len(p.Skills) > 0 {
		sb.WriteString("\n### Core Skills & Expertise\n")
		sb.WriteString(strings.Join(p.Skills, ", "))
		sb.WriteString("\n")
	}

	if len(p.Achievements) > 0 {
		sb.WriteString("\n### Major Achievements\n")
		for _, a := range p.Achievements {
			fmt.Fprintf(&sb, "- **%s**: %s\n", a.Title, strings.TrimSpace(a.Description))
		}
	}

	if len(p.Projects) > 0 {
		sb.WriteString("\n### Featured Projects\n")
		for _, pr := range p.Projects {
			fmt.Fprintf(&sb, "- **%s**: %s\n", pr.Name, strings.TrimSpace(pr.Description))
		}
	}

	sb.WriteString("\n### Communication Guidelines\n")
	for _, g := range p.Guidelines {
		fmt.Fprintf(&sb, "- %s\n", g)
	}
	sb.WriteString("- Keep answers short; use a few sentences unless the visitor asks for detail\n")
	sb.WriteString("- Never share contact details yourself; point visitors to the contact form instead\n")

	return sb.String()
}
