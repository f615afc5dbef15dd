package picker

import "encoding/base64"

// ImageResource is an uploaded image ready for display
type ImageResource struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// DataURI renders the image as "data:<mime>;base64,<payload>"
func (r ImageResource) DataURI() string {
	return "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}
