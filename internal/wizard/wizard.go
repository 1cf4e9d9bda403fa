// Package wizard interactively collects run parameters when the run command
// is started without flags.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/skills"
)

// Selection holds the run configuration collected from the user.
type Selection struct {
	SkillID         string
	DocName         string
	ModelKeys       []string
	JudgeKeys       []string
	BusinessContext string
}

// Run walks the user through skill, document, model, and judge selection.
// The form reads from in and writes to out; when in is not a terminal it
// switches to huh's accessible mode so piped input still works.
func Run(in io.Reader, out io.Writer, repo *skills.Repository, catalog llm.Catalog) (*Selection, error) {
	metas, err := repo.Discover()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("no skills found under %s", repo.Dir())
	}

	available := catalog.Available()
	if len(available) == 0 {
		return nil, errors.New("no models available: set at least one provider API key")
	}

	sel := &Selection{
		ModelKeys: available.Keys(),
		JudgeKeys: defaultJudges(available),
	}

	// Skill first; the document list depends on it.
	skillForm := newForm(in, out, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Skill").
			Options(skillOptions(metas)...).
			Value(&sel.SkillID),
	))
	if err := skillForm.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	docs, err := repo.Docs(sel.SkillID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("skill %s has no test documents", sel.SkillID)
	}

	runForm := newForm(in, out, huh.NewGroup(
		huh.NewSelect[string]().
			Title("Test document").
			Options(docOptions(docs)...).
			Value(&sel.DocName),
		huh.NewMultiSelect[string]().
			Title("Models").
			Description("Models to evaluate; all available models are preselected").
			Options(modelOptions(available)...).
			Value(&sel.ModelKeys).
			Validate(func(keys []string) error {
				if len(keys) == 0 {
					return errors.New("select at least one model")
				}
				return nil
			}),
		huh.NewMultiSelect[string]().
			Title("Judges").
			Description("Two or more judges score as a consensus panel; none skips judging").
			Options(modelOptions(available)...).
			Value(&sel.JudgeKeys),
		huh.NewInput().
			Title("Business context").
			Description("Optional deal context substituted into the skill prompt").
			Value(&sel.BusinessContext),
	))
	if err := runForm.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return sel, nil
}

func newForm(in io.Reader, out io.Writer, groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}
	return form
}

// defaultJudges preselects the default judge when its credentials are set.
func defaultJudges(available llm.Catalog) []string {
	if _, ok := available[llm.DefaultJudgeKey]; ok {
		return []string{llm.DefaultJudgeKey}
	}
	return nil
}

func skillOptions(metas []*skills.Meta) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(metas))
	for _, meta := range metas {
		label := meta.DisplayName
		if label == "" {
			label = meta.SkillID
		}
		label = fmt.Sprintf("%s (%d versions, %d docs)", label, meta.VersionCount, meta.DocCount)
		options = append(options, huh.NewOption(label, meta.SkillID))
	}
	return options
}

func docOptions(docs []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(docs))
	for _, doc := range docs {
		options = append(options, huh.NewOption(doc, doc))
	}
	return options
}

func modelOptions(available llm.Catalog) []huh.Option[string] {
	keys := available.Keys()
	options := make([]huh.Option[string], 0, len(keys))
	for _, key := range keys {
		options = append(options, huh.NewOption(available.DisplayName(key), key))
	}
	return options
}
