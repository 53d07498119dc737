package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DraftID derives a stable id from a draft's file name, so the same file
// keeps its id across listings.
func DraftID(fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("postpub:drafts/"+fileName)).String()
}

// ImageURL is where the /images route serves fileName from.
func ImageURL(publicURL, fileName string) string {
	return fmt.Sprintf("%s/images/%s", strings.TrimSuffix(publicURL, "/"), url.PathEscape(fileName))
}
