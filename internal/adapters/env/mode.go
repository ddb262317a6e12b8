package env

import (
	"os"

	"github.com/jant/site/internal/core"
)

const DevModeVar = "SITE_DEV"

func DetectMode() core.Mode {
	if os.Getenv(DevModeVar) == "1" {
		return core.ModeDev
	}
	return core.ModeProd
}
