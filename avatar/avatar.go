// Package avatar builds default avatar image URLs for wallet addresses.
package avatar

import "net/url"

const (
	baseURL = "https://source.boringavatars.com/marble/120/"
	query   = "?square&colors=da3a00,fa8158,ffa835,37c391,7c456cf"
)

// URL returns the avatar image URL for an address. No request is made.
func URL(address string) string {
	return baseURL + url.PathEscape(address) + query
}
