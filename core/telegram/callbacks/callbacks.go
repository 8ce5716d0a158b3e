// Package callbacks encodes and decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// uniquePrefix starts callback data of buttons built with a Unique key.
const uniquePrefix = "\f"

// Parse splits callback data in telebot's "\f<unique>|<payload>" form.
// When telebot already matched a Unique endpoint, Unique and Data are
// returned as they are.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// ParseData splits raw callback data into key and payload.
func ParseData(data string) (key, payload string) {
	raw := strings.TrimPrefix(data, uniquePrefix)
	key, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Encode builds callback data for key and payload.
func Encode(key, payload string) string {
	if payload == "" {
		return uniquePrefix + key
	}
	return uniquePrefix + key + "|" + payload
}
