package transfer

type LinkedInShare struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent LinkedInSpecificContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type LinkedInSpecificContent struct {
	ShareContent LinkedInShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type LinkedInShareContent struct {
	ShareCommentary    LinkedInText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []LinkedInMedia `json:"media,omitempty"`
}

type LinkedInText struct {
	Text string `json:"text"`
}

type LinkedInMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

func NewLinkedInShare(author, text, imageURL string) *LinkedInShare {
	content := LinkedInShareContent{
		ShareCommentary:    LinkedInText{Text: text},
		ShareMediaCategory: "NONE",
	}
	if imageURL != "" {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []LinkedInMedia{{Status: "READY", OriginalURL: imageURL}}
	}
	return &LinkedInShare{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: LinkedInSpecificContent{ShareContent: content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
}
