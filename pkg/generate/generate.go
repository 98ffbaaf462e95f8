// Package generate drives per-symbol documentation generation: prompt
// assembly from the symbol's code and its reference neighborhood, the
// retry/backoff policy, the token-budget check, and the placeholder
// fallback.
package generate

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ternarybob/docweave/pkg/docmodel"
	"github.com/ternarybob/docweave/pkg/llmclient"
)

const (
	maxAttempts  = 2
	retryBackoff = 3 * time.Second
)

const systemPromptTemplate = `As an AI documentation assistant, your task is to generate documentation
for the %s %s in the %s document of the given project%s
The documentation should include the function, %s, code description,
and any notes in %s. This documentation should focus on aspects relevant to testing,
such as edge cases, error handling, and return values. %s

%s%s
Avoid using Markdown hierarchical heading and divider syntax.
You may use English words for function names or variable names.

Raw code:
` + "```" + `
%s
` + "```" + `
`

const userPromptTemplate = `Remember, your audience is testers.
Generate precise content that highlights the aspects of the %s %s
that are relevant to testing. Avoid speculation or inaccuracies.
Now, provide the documentation for %s in %s professionally,
keeping the needs of testers in mind.`

// Config carries the run's generation knobs.
type Config struct {
	MaxDocumentTokens int
	Language          string
	// Profile selects a built-in system-prompt variant ("default" or
	// "terse"); unknown or empty values behave as "default".
	Profile string
}

// profileInstruction returns the extra system-prompt clause for the
// configured profile's prompt-template variant.
func profileInstruction(profile string) string {
	switch profile {
	case "terse":
		return " Keep the documentation to two or three sentences; skip background and examples."
	default:
		return ""
	}
}

// Result is one generation outcome.
type Result struct {
	Content     string
	Placeholder bool
}

// Generate produces the documentation body for item, appending it to
// item.MDContent and setting item.Status to UpToDate on success; on
// exhausted retries it appends the placeholder body and marks the item
// NotGenerated, so no item is ever left without a body.
func Generate(ctx context.Context, item *docmodel.DocItem, client llmclient.Provider, cfg Config) Result {
	if cfg.Language == "" {
		cfg.Language = "English"
	}

	system, user := buildPrompts(item, cfg)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		content, err := client.Chat(ctx, system, user)
		if err == nil && strings.TrimSpace(content) != "" {
			item.MDContent = append(item.MDContent, content)
			item.Status = docmodel.StatusUpToDate
			return Result{Content: content}
		}
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return fallback(item)
			case <-time.After(retryBackoff):
			}
		}
	}
	return fallback(item)
}

func fallback(item *docmodel.DocItem) Result {
	placeholder := fmt.Sprintf("%s - [%s]: \ndocumentation to be generated", item.GetFullName(true), item.Kind.ToStr())
	item.MDContent = append(item.MDContent, placeholder)
	item.Status = docmodel.StatusNotGenerated
	return Result{Content: placeholder, Placeholder: true}
}

// TokensExceedBudget reports whether the assembled prompt for item
// would exceed maxTokens, for callers that want to warn before
// spending a request.
func TokensExceedBudget(item *docmodel.DocItem, cfg Config) (int, bool) {
	system, user := buildPrompts(item, cfg)
	total := estimateTokens(system) + estimateTokens(user)
	max := cfg.MaxDocumentTokens
	if max <= 0 {
		max = 1024
	}
	return total, total > max
}

func buildPrompts(item *docmodel.DocItem, cfg Config) (system, user string) {
	codeType := item.Content.Type
	codeTypeTell := "Function"
	parametersOrAttribute := "parameters"
	if codeType == "ClassDef" {
		codeTypeTell = "Class"
		parametersOrAttribute = "attributes"
	}

	haveReturnTell := ""
	if item.Content.HaveReturn {
		haveReturnTell = "**Output Example**: Mock up a possible appearance of the code's return value."
	}

	referenced := len(item.ReferencesTo) > 0
	combineRefSituation := ""
	if referenced {
		combineRefSituation = " and combine it with its calling situation in the project,"
	}

	referencerContent := referencerPrompt(item)
	refereePrompt := refereePromptText(item)
	hasRelationship := relationshipDescription(referencerContent != "", refereePrompt != "")

	filePath := enclosingFilePath(item)
	docItemPath := path.Join(filePath, item.Name)
	projectStructure := buildPathTree(referencerNames(item), refereeNames(item), docItemPath)
	structureSuffix := combineRefSituation
	if projectStructure != "" {
		structureSuffix += ", and the related hierarchical structure of this project is as follows (the current object is marked with an *):\n" + projectStructure
	}

	relationshipBody := ""
	if referencerContent != "" || refereePrompt != "" {
		relationshipBody = strings.TrimRight(referencerContent+"\n"+refereePrompt, "\n") + "\n"
	}

	system = fmt.Sprintf(
		systemPromptTemplate,
		item.Name, codeTypeTell, filePath, structureSuffix,
		parametersOrAttribute, cfg.Language, haveReturnTell, hasRelationship,
		relationshipBody,
		item.Content.CodeContent,
	)
	system += profileInstruction(cfg.Profile)
	user = fmt.Sprintf(userPromptTemplate, item.Name, codeTypeTell, item.Name, cfg.Language)
	return system, user
}

func relationshipDescription(hasReferencers, hasReferees bool) string {
	switch {
	case hasReferencers && hasReferees:
		return "And please include the reference relationship with its callers and callees in the project from a functional perspective."
	case hasReferencers:
		return "And please include the relationship with its callers in the project from a functional perspective."
	case hasReferees:
		return "And please include the relationship with its callees in the project from a functional perspective."
	default:
		return ""
	}
}

const separator = "=========="

// refereePromptText renders the "calls the following objects" section
// for item's ReferencesFrom (the objects item itself calls).
func refereePromptText(item *docmodel.DocItem) string {
	if len(item.ReferencesFrom) == 0 {
		return ""
	}
	lines := []string{"As you can see, the code calls the following objects, their code and docs are as following:"}
	for _, ref := range item.ReferencesFrom {
		lines = append(lines, excerpt(ref))
	}
	return strings.Join(lines, "\n")
}

// referencerPrompt renders the "called by the following objects"
// section for item's ReferencesTo (the objects that call item).
func referencerPrompt(item *docmodel.DocItem) string {
	if len(item.ReferencesTo) == 0 {
		return ""
	}
	lines := []string{"Also, the code has been called by the following objects, their code and docs are as following:"}
	for _, ref := range item.ReferencesTo {
		lines = append(lines, excerpt(ref))
	}
	return strings.Join(lines, "\n")
}

func excerpt(item *docmodel.DocItem) string {
	doc := "None"
	if len(item.MDContent) > 0 {
		doc = item.MDContent[len(item.MDContent)-1]
	}
	return fmt.Sprintf("obj: %s\nDocument:\n%s\nRaw code:\n```\n%s\n```%s",
		item.GetFullName(true), doc, item.Content.CodeContent, separator)
}

// referencerNames lists the qualified names of item's callers.
func referencerNames(item *docmodel.DocItem) []string {
	names := make([]string, 0, len(item.ReferencesTo))
	for _, r := range item.ReferencesTo {
		names = append(names, r.GetFullName(true))
	}
	return names
}

// refereeNames lists the qualified names of what item calls.
func refereeNames(item *docmodel.DocItem) []string {
	names := make([]string, 0, len(item.ReferencesFrom))
	for _, r := range item.ReferencesFrom {
		names = append(names, r.GetFullName(true))
	}
	return names
}

func enclosingFilePath(item *docmodel.DocItem) string {
	cur := item.Parent
	for cur != nil {
		if cur.Kind == docmodel.KindFile {
			return cur.GetFullName(false)
		}
		cur = cur.Parent
	}
	return ""
}

// buildPathTree renders the hierarchical structure view as an
// indented, alphabetically sorted tree, marking docItemPath's final
// segment with ✳️.
func buildPathTree(whoReferenceMe, referenceWho []string, docItemPath string) string {
	type node struct {
		children map[string]*node
	}
	newNode := func() *node { return &node{children: make(map[string]*node)} }
	root := newNode()

	insert := func(parts []string) {
		cur := root
		for _, part := range parts {
			child, ok := cur.children[part]
			if !ok {
				child = newNode()
				cur.children[part] = child
			}
			cur = child
		}
	}

	for _, p := range whoReferenceMe {
		insert(strings.Split(p, "/"))
	}
	for _, p := range referenceWho {
		insert(strings.Split(p, "/"))
	}

	docParts := strings.Split(docItemPath, "/")
	if len(docParts) > 0 {
		docParts[len(docParts)-1] = "✳️" + docParts[len(docParts)-1]
	}
	insert(docParts)

	var render func(n *node, indent int) string
	render = func(n *node, indent int) string {
		keys := make([]string, 0, len(n.children))
		for k := range n.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			b.WriteString(strings.Repeat("    ", indent))
			b.WriteString(k)
			b.WriteString("\n")
			b.WriteString(render(n.children[k], indent+1))
		}
		return b.String()
	}
	return render(root, 0)
}

// encodingOnce lazily builds the cl100k_base encoder; if the BPE ranks
// fail to load (e.g. no network access to fetch them), estimateTokens
// falls back to a rough bytes-per-token heuristic rather than failing
// the whole run.
var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func estimateTokens(s string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding != nil {
		return len(encoding.Encode(s, nil, nil))
	}
	return (len(s) + 3) / 4
}
