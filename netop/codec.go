package netop

import (
	"regexp"
	"strings"
)

// Lengths of the identifier forms handled by the codec. The platform
// network id is the UUID with the dashes removed, concatenated with
// itself, so a full id is twice the bare UUID length.
const (
	uuidHexLength    = 32
	platformIDLength = 2 * uuidHexLength
)

// Positions at which the dashes are reinserted when a platform id is
// converted back to the UUID form.
var uuidDashOffsets = map[int]bool{8: true, 12: true, 16: true, 20: true}

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// Derives the platform network id of a network from its UUID. Pure and
// total: no validation of the input is attempted.
func PlatformNetworkID(uuid string) string {
	hex := strings.ReplaceAll(uuid, "-", "")
	return hex + hex
}

// Converts a platform network id, or a prefix of one, back to the UUID
// form understood by the network service. For inputs longer than the bare
// UUID length only the first half is used. The result has the dashes
// reinserted at the UUID group boundaries and the characters meaningful
// to the service filter syntax escaped, so it is safe to place in a list
// filter directly.
func UUIDFromPlatformID(id string) string {
	half := id
	if len(half) > uuidHexLength {
		half = half[:uuidHexLength]
	}
	var builder strings.Builder
	for i := 0; i < len(half); i++ {
		if uuidDashOffsets[i] {
			builder.WriteByte('-')
		}
		builder.WriteByte(half[i])
	}
	return escapeFilterValue(builder.String())
}

// Checks if the identifier is a well-formed full platform network id.
// The derivation doubles the UUID, so the first half of a real id always
// equals the second half; an id violating this is impossible and can be
// rejected without a call to the network service.
func isFullPlatformID(id string) bool {
	if len(id) != platformIDLength || !hexPattern.MatchString(id) {
		return false
	}
	return id[:uuidHexLength] == id[uuidHexLength:]
}

// Checks if the identifier is a valid proper prefix of some platform
// network id. A prefix no longer than the bare UUID length is
// unconstrained; a longer one spills into the doubled half, so its tail
// must repeat the beginning of the first half.
func isPlatformIDPrefix(id string) bool {
	if len(id) == 0 || len(id) >= platformIDLength || !hexPattern.MatchString(id) {
		return false
	}
	if len(id) <= uuidHexLength {
		return true
	}
	return strings.HasPrefix(id[:uuidHexLength], id[uuidHexLength:])
}

// Escapes the characters meaningful to the network service filter syntax.
func escapeFilterValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `*`, `\*`)
	return value
}
