package avatar

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Gravatar resolves default avatars. Gravatar keys images by the md5 of the
// lowercased email address.
type Gravatar struct {
	httpClient *http.Client
	baseURL    string
}

func NewGravatar() *Gravatar {
	return &Gravatar{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://www.gravatar.com",
	}
}

// DefaultURL probes Gravatar for the email's avatar, identicon fallback
// included, and returns the image URL. A failed probe is an error; the
// signup flow logs it and leaves the avatar unset.
func (g *Gravatar) DefaultURL(ctx context.Context, email string) (string, error) {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	url := fmt.Sprintf("%s/avatar/%x?s=250&d=identicon", g.baseURL, sum)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gravatar probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gravatar probe returned status %d", resp.StatusCode)
	}
	return url, nil
}
