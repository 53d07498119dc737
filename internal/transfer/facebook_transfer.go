package transfer

import "time"

type FacebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type FacebookPages struct {
	Data []FacebookPage `json:"data"`
}

type FacebookPhotoResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type FacebookErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type AccountInfo struct {
	PageID      string    `json:"pageId"`
	PageName    string    `json:"pageName"`
	ConnectedAt time.Time `json:"connectedAt"`
}
