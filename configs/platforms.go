package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Platform describes how a single platform is published. A nil DelayMinutes
// means the platform is posted manually and never auto-scheduled.
type Platform struct {
	Name         string
	DelayMinutes *int
	AutoPublish  bool
	Manual       bool
}

// PostedManually reports whether a human has to confirm the post on this
// platform after the orchestrator has run.
func (p Platform) PostedManually() bool {
	return p.Manual || !p.AutoPublish
}

type Platforms map[string]Platform

func intPtr(v int) *int { return &v }

func DefaultPlatforms() Platforms {
	return Platforms{
		"instagram": {Name: "instagram", DelayMinutes: intPtr(0), AutoPublish: true},
		"facebook":  {Name: "facebook", DelayMinutes: intPtr(5), AutoPublish: true},
		"linkedin":  {Name: "linkedin", Manual: true},
	}
}

// Names returns the configured platform names in a stable order.
func (p Platforms) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPlatforms reads the platform table from path (yaml). An empty path or a
// missing file yields the defaults. Env vars such as
// PLATFORMS_FACEBOOK_DELAY_MINUTES override single values.
//
//	platforms:
//	  instagram: {delay_minutes: 0, auto_publish: true}
//	  linkedin:  {manual: true}
func LoadPlatforms(path string) (Platforms, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPlatforms()
	for name, pf := range defaults {
		if pf.DelayMinutes != nil {
			v.SetDefault(key(name, "delay_minutes"), *pf.DelayMinutes)
		}
		v.SetDefault(key(name, "auto_publish"), pf.AutoPublish)
		v.SetDefault(key(name, "manual"), pf.Manual)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
				return nil, fmt.Errorf("read platforms config: %w", err)
			}
		}
	}

	out := Platforms{}
	for name := range v.GetStringMap("platforms") {
		out[name] = Platform{}
	}
	for name := range defaults {
		out[name] = Platform{}
	}
	for name := range out {
		pf := Platform{
			Name:        name,
			AutoPublish: v.GetBool(key(name, "auto_publish")),
			Manual:      v.GetBool(key(name, "manual")),
		}
		if v.IsSet(key(name, "delay_minutes")) && v.Get(key(name, "delay_minutes")) != nil && !pf.Manual {
			pf.DelayMinutes = intPtr(v.GetInt(key(name, "delay_minutes")))
		}
		out[name] = pf
	}
	return out, nil
}

func key(platform, field string) string {
	return "platforms." + platform + "." + field
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
