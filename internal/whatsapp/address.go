package whatsapp

import (
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// ContactSuffix marks an address that already points at a user chat.
const ContactSuffix = "@c.us"

var ErrInvalidAddress = errors.New("whatsapp: invalid address")

// NormalizeAddress turns a phone number as typed by a user into an address:
// every non-digit is dropped and ContactSuffix is appended. Input that already
// carries a server part is returned unchanged.
func NormalizeAddress(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if strings.Contains(phone, "@") {
		return phone, nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", fmt.Errorf("%w: %q has no digits", ErrInvalidAddress, phone)
	}
	return digits + ContactSuffix, nil
}

// ParseAddress converts an address into a JID. The @c.us form maps to the
// default user server; anything else must already be a valid JID.
func ParseAddress(address string) (types.JID, error) {
	if user, ok := strings.CutSuffix(address, ContactSuffix); ok {
		if user == "" || strings.ContainsFunc(user, func(r rune) bool { return r < '0' || r > '9' }) {
			return types.EmptyJID, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		return types.NewJID(user, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(address)
	if err != nil || jid.User == "" {
		return types.EmptyJID, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return jid, nil
}

// AddressOf is the inverse of ParseAddress for user chats.
func AddressOf(jid types.JID) string {
	if jid.Server == types.DefaultUserServer {
		return jid.User + ContactSuffix
	}
	return jid.String()
}
