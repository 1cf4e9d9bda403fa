package main

import (
	"github.com/microsoft/skillcheck/internal/llm"
	"github.com/microsoft/skillcheck/internal/results"
	"github.com/microsoft/skillcheck/internal/skills"
)

// appDeps bundles the shared pieces every command builds from the persistent
// directory flags.
type appDeps struct {
	repo    *skills.Repository
	store   *results.FileStore
	catalog llm.Catalog
}

// openDeps resolves the skill repository, result store, and model catalog.
// The catalog picks up a models.yaml override from the working directory
// when one exists.
func openDeps() (*appDeps, error) {
	catalog, err := llm.LoadCatalog(".")
	if err != nil {
		return nil, err
	}
	return &appDeps{
		repo:    skills.NewRepository(skillsDir),
		store:   results.NewFileStore(resultsDir),
		catalog: catalog,
	}, nil
}
