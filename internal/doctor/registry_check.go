package doctor

import (
	"fmt"

	"github.com/wsdb/wsmongo/internal/registry"
)

// RegistryCheck verifies that config.json parses, that its default names an
// existing database, and that no name appears twice.
type RegistryCheck struct {
	FixableCheck
}

// NewRegistryCheck creates a new registry consistency check.
func NewRegistryCheck() *RegistryCheck {
	return &RegistryCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "registry",
				CheckDescription: "Check that the database registry is consistent",
				CheckCategory:    CategoryConfiguration,
			},
		},
	}
}

// Run reads the registry document without repairing it.
func (c *RegistryCheck) Run(ctx *CheckContext) *CheckResult {
	store := registry.NewFileStore(ctx.Settings.RegistryPath())
	if !store.Exists() {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusOK,
			Message: "no databases yet",
		}
	}

	doc, err := store.Read()
	if err != nil {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: "registry could not be read",
			Details: []string{err.Error()},
			FixHint: fmt.Sprintf("Repair or remove %s", ctx.Settings.RegistryPath()),
		}
	}

	var problems []string
	seen := make(map[string]bool)
	for _, d := range doc.Databases {
		if d.Name == "" {
			problems = append(problems, "entry without a name")
			continue
		}
		if seen[d.Name] {
			problems = append(problems, fmt.Sprintf("database %q is listed more than once", d.Name))
		}
		seen[d.Name] = true
	}
	if doc.Default != "" && !seen[doc.Default] {
		problems = append(problems, fmt.Sprintf("default %q is not a known database", doc.Default))
	}

	if len(problems) > 0 {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d problem(s) in registry", len(problems)),
			Details: problems,
			FixHint: "Run 'wsmongo doctor --fix' to rewrite the registry",
		}
	}

	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: fmt.Sprintf("%d database(s)", len(doc.Databases)),
	}
}

// Fix rewrites the registry through Load and Save, which drops nameless
// entries, duplicates and a dangling default.
func (c *RegistryCheck) Fix(ctx *CheckContext) error {
	reg, err := registry.Load(registry.NewFileStore(ctx.Settings.RegistryPath()))
	if err != nil {
		return err
	}
	return reg.Save()
}
