package i18n

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/prepguard/prepguard/internal/config"
	"github.com/prepguard/prepguard/internal/infra"
	"github.com/prepguard/prepguard/resources"
)

var state = struct {
	translations    map[string]map[string]string
	loaded          map[string]bool
	resourcesPath   string
	defaultLanguage string
}{
	translations:    make(map[string]map[string]string),
	loaded:          make(map[string]bool),
	defaultLanguage: config.Get().DefaultLanguage,
	resourcesPath:   infra.GetResourcesPath("i18n"),
}

func load(lang string) {
	if "en" == lang {
		return
	}

	i18n, err := resources.FS.ReadFile(state.resourcesPath + "/" + fmt.Sprintf("%s.yml", lang))
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(i18n, &translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
		return
	}
	state.translations[lang] = translations
	state.loaded[lang] = true
}

// GetLanguagesList returns the language codes shipped as embedded
// translations, plus the implicit source language.
func GetLanguagesList() []string {
	languages := []string{"en"}
	entries, err := resources.FS.ReadDir(state.resourcesPath)
	if err != nil {
		log.WithError(err).Errorln("cant list i18n resources")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") {
			languages = append(languages, strings.TrimSuffix(name, ".yml"))
		}
	}
	return languages
}

func Get(key, lang string) string {
	if "en" == lang {
		return key
	}
	if !state.loaded[lang] {
		load(lang)
	}
	if res, ok := state.translations[lang][key]; ok {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}
