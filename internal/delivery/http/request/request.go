package request

type AnalyzeRequest struct {
	Hashtag  string `json:"hashtag"`
	Platform string `json:"platform"` // "instagram" or "tiktok"
}
