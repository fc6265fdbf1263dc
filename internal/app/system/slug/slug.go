// Package slug generates URL-safe slugs from titles and resolves collisions
// against a MongoDB collection.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the default maximum slug length.
const MaxLength = 80

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphens  = regexp.MustCompile(`-{2,}`)

	// stripMarks removes combining marks after NFD decomposition, so
	// accented characters fold to their base letters.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Make converts a title into a lowercase hyphen-separated slug. Accented
// characters are folded to ASCII, everything else non-alphanumeric becomes a
// hyphen, and the result is trimmed to MaxLength.
func Make(title string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, "-")
	s = reHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = s[:MaxLength]
		s = strings.Trim(s, "-")
	}

	return s
}

// Unique returns a slug derived from title that does not collide with any
// other document in coll. excludeID is skipped during the collision check, so
// an update can keep its own slug. On collision a numeric suffix is probed:
// base-2, base-3, and so on.
func Unique(ctx context.Context, coll *mongo.Collection, title string, excludeID primitive.ObjectID) (string, error) {
	base := Make(title)
	if base == "" {
		base = "item"
	}

	candidate := base
	for i := 2; i <= 200; i++ {
		taken, err := slugTaken(ctx, coll, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		suffix := fmt.Sprintf("-%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > MaxLength {
			trimmed = strings.Trim(trimmed[:MaxLength-len(suffix)], "-")
		}
		candidate = trimmed + suffix
	}

	return "", errors.New("slug: could not find a unique slug")
}

func slugTaken(ctx context.Context, coll *mongo.Collection, candidate string, excludeID primitive.ObjectID) (bool, error) {
	filter := bson.M{"slug": candidate}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	err := coll.FindOne(ctx, filter).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}
