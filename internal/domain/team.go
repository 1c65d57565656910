package domain

import (
	"fmt"
	"strings"
	"time"
)

// Team is a named, ordered agent chain.
type Team struct {
	ID        string
	Name      string
	Members   []string
	UpdatedAt time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(t.Members) == 0 {
		return fmt.Errorf("at least one member is required")
	}

	return nil
}

// NormalizeMembers trims member ids and drops empty ones. Repeats are kept:
// a chain may visit the same agent twice.
func (t *Team) NormalizeMembers() {
	if t == nil {
		return
	}

	members := make([]string, 0, len(t.Members))
	for _, member := range t.Members {
		trimmed := strings.TrimSpace(member)
		if trimmed == "" {
			continue
		}
		members = append(members, trimmed)
	}

	t.Members = members
}
