package transfer

type LinkedInUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

type LinkedInRegisterUploadRequest struct {
	RegisterUploadRequest LinkedInUploadRequest `json:"registerUploadRequest"`
}

type LinkedInUploadRequest struct {
	Recipes              []string                      `json:"recipes"`
	Owner                string                        `json:"owner"`
	ServiceRelationships []LinkedInServiceRelationship `json:"serviceRelationships"`
}

type LinkedInServiceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type LinkedInRegisterUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			MediaUploadHTTPRequest struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

type LinkedInUGCPost struct {
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
	Status string `json:"status"`
	Media  string `json:"media"`
}

type LinkedInErrorResponse struct {
	Status           int    `json:"status"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Message          string `json:"message"`
}
