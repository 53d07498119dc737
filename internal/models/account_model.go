package models

import "time"

// Account is the Facebook page posts are published to. AccessToken is stored
// encrypted.
type Account struct {
	PageID      string    `json:"pageId"`
	PageName    string    `json:"pageName"`
	AccessToken string    `json:"accessToken"`
	ConnectedAt time.Time `json:"connectedAt"`
}
