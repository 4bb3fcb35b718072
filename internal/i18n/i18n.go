package i18n

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/antispambot/resources"
)

var state = struct {
	mu           sync.Mutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) {
	raw, err := resources.FS.ReadFile(fmt.Sprintf("i18n/%s.yml", lang))
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		state.loaded[lang] = true
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
		state.loaded[lang] = true
		return
	}
	state.translations[lang] = translations
	state.loaded[lang] = true
}

// Get returns the translation of the key for the language, falling back to
// the key itself (the keys are the English strings).
func Get(key, lang string) string {
	if lang == "en" {
		return key
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.loaded[lang] {
		load(lang)
	}
	if res, ok := state.translations[lang][key]; ok {
		return res
	}
	log.Tracef(`no translation for key %q`, key)
	return key
}
