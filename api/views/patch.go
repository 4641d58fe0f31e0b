package views

import (
	"github.com/angelmondragon/storefront-backend/internal/messages"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/realtime"
)

// Element ids the realtime stream patches.
const (
	TargetProducts   = "products"
	TargetChatLog    = "messageLogs"
	TargetChatNotice = "chatNotice"
)

// Patch is the HTML a realtime event turns into, addressed by element id.
type Patch struct {
	TargetID string
	HTML     string
}

// EventPatch renders the fragment for ev. ok is false for events that do not
// map to markup.
func (r *Renderer) EventPatch(ev realtime.Event) (Patch, bool, error) {
	switch ev.Name {
	case realtime.EventProductsUpdated:
		var list []product.ProductDTO
		if err := ev.Decode(&list); err != nil {
			return Patch{}, false, err
		}
		html, err := r.Fragment(FragmentProductRows, list)
		return Patch{TargetID: TargetProducts, HTML: html}, err == nil, err
	case realtime.EventMessageLogs:
		var logs []messages.MessageDTO
		if err := ev.Decode(&logs); err != nil {
			return Patch{}, false, err
		}
		html, err := r.Fragment(FragmentChatLog, logs)
		return Patch{TargetID: TargetChatLog, HTML: html}, err == nil, err
	case realtime.EventNewUserConnected:
		var username string
		if err := ev.Decode(&username); err != nil {
			return Patch{}, false, err
		}
		html, err := r.Fragment(FragmentChatNotice, username)
		return Patch{TargetID: TargetChatNotice, HTML: html}, err == nil, err
	default:
		return Patch{}, false, nil
	}
}
