package render

import (
	"path"
	"strings"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/references"
	"github.com/goliatone/go-pagekit/internal/schema"
)

// PreviewAssetPrefix is the URL root the preview server exposes project
// assets under.
const PreviewAssetPrefix = "/preview"

// AssetURL maps a widget asset path to the URL used in the given mode.
// Preview serves assets from the project workspace, published sites ship
// them next to the pages. Absolute URLs are kept as is.
func AssetURL(projectID string, mode domain.RenderMode, asset string) string {
	asset = strings.TrimSpace(asset)
	if asset == "" || references.IsExternalURL(asset) {
		return asset
	}
	clean := strings.TrimLeft(path.Clean("/"+asset), "/")
	if mode == domain.RenderModePublish {
		return path.Join("assets", clean)
	}
	return path.Join(PreviewAssetPrefix, projectID, "assets", clean)
}

func enqueueAssets(session *Context, assets schema.Assets) {
	for _, style := range assets.Styles {
		session.EnqueueStyle(AssetURL(session.ProjectID(), session.Mode(), style))
	}
	for _, script := range assets.Scripts {
		session.EnqueueScript(AssetURL(session.ProjectID(), session.Mode(), script))
	}
}
