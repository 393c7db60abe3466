package gates

import (
	"fmt"
	"strings"
	"time"
)

// Profile alters gate thresholds per environment.
type Profile struct {
	Name        string        `json:"name"`
	GateTimeout time.Duration `json:"-"`
	// Strict asks gates to escalate advisory findings.
	Strict bool `json:"strict"`
}

var profiles = map[string]Profile{
	"local": {Name: "local", GateTimeout: 30 * time.Second},
	"ci":    {Name: "ci", GateTimeout: 60 * time.Second},
	"prod":  {Name: "prod", GateTimeout: 120 * time.Second, Strict: true},
}

// ProfileFor returns the named profile.
func ProfileFor(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "local"
	}
	profile, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (expected local|ci|prod)", name)
	}
	return profile, nil
}
