package portal

import (
	"embed"
)

//go:embed assets/captive.html assets/web.html
var assets embed.FS

func mustAsset(name string) []byte {
	b, err := assets.ReadFile("assets/" + name)
	if err != nil {
		panic(err)
	}
	return b
}

var (
	captivePage = mustAsset("captive.html")
	webPage     = mustAsset("web.html")
)
