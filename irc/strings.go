// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"strings"

	"golang.org/x/text/secure/precis"
)

// CaseMapping determines how nicknames and channel names are normalized
// for comparison. Servers advertise theirs via the CASEMAPPING ISUPPORT
// token; until we see one we assume rfc1459, which is what nearly every
// network actually uses.
type CaseMapping uint

const (
	// CaseMappingRFC1459 folds A-Z and additionally []\~ to {}|^,
	// a leftover from IRC's Scandinavian origins.
	CaseMappingRFC1459 CaseMapping = iota
	// CaseMappingASCII folds A-Z only.
	CaseMappingASCII
	// CaseMappingPRECIS is the rfc8265 UsernameCaseMapped profile.
	CaseMappingPRECIS
)

// ParseCaseMapping interprets a CASEMAPPING token value.
func ParseCaseMapping(value string) (CaseMapping, bool) {
	switch strings.ToLower(value) {
	case "rfc1459", "rfc1459-strict":
		return CaseMappingRFC1459, true
	case "ascii":
		return CaseMappingASCII, true
	case "precis", "rfc8265", "rfc7613":
		return CaseMappingPRECIS, true
	default:
		return CaseMappingRFC1459, false
	}
}

func (cm CaseMapping) String() string {
	switch cm {
	case CaseMappingASCII:
		return "ascii"
	case CaseMappingPRECIS:
		return "rfc8265"
	default:
		return "rfc1459"
	}
}

// Each pass of PRECIS casefolding is a composition of idempotent operations,
// but not idempotent itself. Therefore, the spec says "do it four times and hope
// it converges" (lolwtf). Golang's PRECIS implementation has a "repeat" option,
// which provides this functionality, but unfortunately it's not exposed publicly.
func iterateFolding(profile *precis.Profile, oldStr string) (str string, err error) {
	str = oldStr
	// follow the stabilizing rules laid out here:
	// https://tools.ietf.org/html/draft-ietf-precis-7564bis-10.html#section-7
	for i := 0; i < 4; i++ {
		str, err = profile.CompareKey(str)
		if err != nil {
			return "", err
		}
		if oldStr == str {
			break
		}
		oldStr = str
	}
	if oldStr != str {
		return "", errCouldNotStabilize
	}
	return str, nil
}

func foldASCII(str string) string {
	var b strings.Builder
	for i := 0; i < len(str); i++ {
		chr := str[i]
		if 'A' <= chr && chr <= 'Z' {
			chr += 'a' - 'A'
		}
		b.WriteByte(chr)
	}
	return b.String()
}

func foldRFC1459(str string) string {
	var b strings.Builder
	for i := 0; i < len(str); i++ {
		chr := str[i]
		switch {
		case 'A' <= chr && chr <= 'Z':
			chr += 'a' - 'A'
		case chr == '[':
			chr = '{'
		case chr == ']':
			chr = '}'
		case chr == '\\':
			chr = '|'
		case chr == '~':
			chr = '^'
		}
		b.WriteByte(chr)
	}
	return b.String()
}

// Casefold normalizes a name under the given mapping. Under PRECIS a name
// can fail to fold (disallowed codepoints, non-convergence); the byte-level
// mappings never fail.
func (cm CaseMapping) Casefold(str string) (string, error) {
	switch cm {
	case CaseMappingASCII:
		return foldASCII(str), nil
	case CaseMappingPRECIS:
		folded, err := iterateFolding(precis.UsernameCaseMapped, str)
		if err != nil {
			// fall back so that comparison still works on whatever the
			// server sent us; identity derivation never takes this path
			return foldRFC1459(str), nil
		}
		return folded, nil
	default:
		return foldRFC1459(str), nil
	}
}

// CasefoldChannel folds a channel name, leaving the leading type prefixes
// (#, &, and friends) untouched.
func (cm CaseMapping) CasefoldChannel(name string) (string, error) {
	if len(name) == 0 {
		return "", errStringIsEmpty
	}

	var start int
	for start = 0; start < len(name) && (name[start] == '#' || name[start] == '&' || name[start] == '+' || name[start] == '!'); start += 1 {
	}

	lowered, err := cm.Casefold(name[start:])
	if err != nil {
		return "", err
	}
	return name[:start] + lowered, nil
}

// Derivation identities are pinned to rfc1459 folding regardless of what the
// live server advertises, so that offline key generation reproduces exactly
// the identities a connected session computes.
const derivationMapping = CaseMappingRFC1459

// ChannelIdentity computes the canonical identity of a channel conversation,
// the string that keys both the keystore and salt derivation.
func ChannelIdentity(serverHost, channel string) string {
	foldedHost, _ := derivationMapping.Casefold(serverHost)
	foldedChannel, _ := derivationMapping.CasefoldChannel(channel)
	return foldedHost + ":" + foldedChannel
}

// PrivateIdentity computes the canonical identity of a private conversation.
// The two nicks are sorted after folding, so both participants derive the
// same identity no matter who initiated.
func PrivateIdentity(serverHost, nickA, nickB string) string {
	foldedHost, _ := derivationMapping.Casefold(serverHost)
	foldedA, _ := derivationMapping.Casefold(nickA)
	foldedB, _ := derivationMapping.Casefold(nickB)
	if foldedB < foldedA {
		foldedA, foldedB = foldedB, foldedA
	}
	return foldedHost + ":" + foldedA + ":" + foldedB
}
