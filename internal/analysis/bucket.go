package analysis

import "unicode/utf16"

// Hash is the 32-bit polynomial string hash the landing page computes in the
// browser: h = (h<<5) - h + c over UTF-16 code units, wrapping at int32, then
// the absolute value. The result is widened to int64 so that the int32 minimum
// maps to 2^31 the way JavaScript's Math.abs does.
func Hash(payload string) int64 {
	var h int32
	for _, r := range payload {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			h = h*31 + int32(hi)
			h = h*31 + int32(lo)
			continue
		}
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// BucketByHash maps payload to an index in [0, catalogSize). Identical
// payloads always land in the same bucket; the empty payload lands in 0.
// A non-positive catalogSize yields 0.
func BucketByHash(payload string, catalogSize int) int {
	if catalogSize <= 0 {
		return 0
	}
	return int(Hash(payload) % int64(catalogSize))
}

// BucketByLength is the questionnaire selection policy: the total UTF-16
// length of every answer value, modulo catalogSize. It ignores answer content
// and order, unlike BucketByHash. The two policies are kept separate on purpose.
func BucketByLength(answers map[string]string, catalogSize int) int {
	if catalogSize <= 0 {
		return 0
	}
	total := 0
	for _, a := range answers {
		total += utf16Len(a)
	}
	return total % catalogSize
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
			continue
		}
		n++
	}
	return n
}
