package landing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidContent возвращается, когда контент landing page нарушает инварианты
var ErrInvalidContent = errors.New("invalid landing content")

// Variant определяет визуальный стиль call-to-action
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
)

const (
	DashboardPath = "/dashboard"
	LoginPath     = "/login"

	requiredActions  = 2
	requiredFeatures = 3
)

// Page: статический контент первой страницы для неавторизованного посетителя
type Page struct {
	Title    string
	Icon     string
	Subtitle string
	Tagline  string
	Actions  []CallToAction
	Features []Feature
	Status   StatusLine
	Docs     ExternalLink
}

// CallToAction: навигационная ссылка внутри приложения
type CallToAction struct {
	Label   string
	Href    string
	Variant Variant
}

// Feature: информационная карточка
type Feature struct {
	Icon        string
	Title       string
	Description string
}

// StatusLine: захардкоженный индикатор статуса платформы
type StatusLine struct {
	Label string
	Token string
}

// ExternalLink: ссылка, открывающаяся в новой вкладке
type ExternalLink struct {
	Label string
	Href  string
	Text  string
}

// Default собирает контент InfoFi. docsURL задает ссылку на документацию API.
func Default(docsURL string) Page {
	return Page{
		Title:    "InfoFi",
		Icon:     "🌐",
		Subtitle: "The Bloomberg Terminal for Crypto Reputation & Airdrops",
		Tagline:  "Stop manually checking dozens of platforms. Let AI find the alpha for you.",
		Actions: []CallToAction{
			{Label: "Launch Dashboard", Href: DashboardPath, Variant: VariantPrimary},
			{Label: "Sign In", Href: LoginPath, Variant: VariantSecondary},
		},
		Features: []Feature{
			{
				Icon:        "📊",
				Title:       "Unified Dashboard",
				Description: "Track 10+ platforms in one place with real-time updates",
			},
			{
				Icon:        "🧠",
				Title:       "AI-Powered Insights",
				Description: "ROI predictions, shill scores, and whale tracking",
			},
			{
				Icon:        "⚡",
				Title:       "Real-Time Alerts",
				Description: "Never miss high-value opportunities again",
			},
		},
		Status: StatusLine{
			Label: "Platform Status",
			Token: "Online",
		},
		Docs: ExternalLink{
			Label: "API Docs",
			Href:  docsURL,
			Text:  displayURL(docsURL),
		},
	}
}

// Validate проверяет инварианты контента
func (p Page) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidContent)
	}

	if len(p.Actions) != requiredActions {
		return fmt.Errorf("%w: expected %d actions, got %d", ErrInvalidContent, requiredActions, len(p.Actions))
	}
	for i, action := range p.Actions {
		if strings.TrimSpace(action.Label) == "" {
			return fmt.Errorf("%w: action %d has empty label", ErrInvalidContent, i)
		}
		if !strings.HasPrefix(action.Href, "/") || strings.HasPrefix(action.Href, "//") {
			return fmt.Errorf("%w: action %q must target an internal path, got %q", ErrInvalidContent, action.Label, action.Href)
		}
	}

	if len(p.Features) != requiredFeatures {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidContent, requiredFeatures, len(p.Features))
	}
	for i, feature := range p.Features {
		if strings.TrimSpace(feature.Title) == "" {
			return fmt.Errorf("%w: feature %d has empty title", ErrInvalidContent, i)
		}
	}

	if strings.TrimSpace(p.Status.Token) == "" {
		return fmt.Errorf("%w: status token is required", ErrInvalidContent)
	}

	parsed, err := url.Parse(p.Docs.Href)
	if err != nil {
		return fmt.Errorf("%w: docs url: %v", ErrInvalidContent, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: docs url must be absolute http(s), got %q", ErrInvalidContent, p.Docs.Href)
	}

	return nil
}

// Fingerprint возвращает стабильный хеш контента (ключ кеша и ETag)
func (p Page) Fingerprint() string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, part := range parts {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
	}

	write(p.Title, p.Icon, p.Subtitle, p.Tagline)
	for _, action := range p.Actions {
		write(action.Label, action.Href, string(action.Variant))
	}
	for _, feature := range p.Features {
		write(feature.Icon, feature.Title, feature.Description)
	}
	write(p.Status.Label, p.Status.Token)
	write(p.Docs.Label, p.Docs.Href, p.Docs.Text)

	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Action возвращает call-to-action по href
func (p Page) Action(href string) (CallToAction, bool) {
	for _, action := range p.Actions {
		if action.Href == href {
			return action, true
		}
	}
	return CallToAction{}, false
}

func displayURL(raw string) string {
	text := strings.TrimPrefix(raw, "https://")
	return strings.TrimPrefix(text, "http://")
}
