package posts

type ContentReq struct {
	Content string `json:"content"`
}

type DeleteResp struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
