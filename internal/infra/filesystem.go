package infra

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// GetWorkDir resolves and creates the bot's working directory under the
// configured dot path.
func GetWorkDir(dotPath string, path ...string) string {
	parts := append([]string{dotPath}, path...)
	workDir := filepath.Join(parts...)
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		log.Fatalln(err)
	}
	return workDir
}
