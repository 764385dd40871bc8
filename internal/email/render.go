package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"regexp"
	"strings"
	texttemplate "text/template"

	"airdesk/internal/classify"
	"airdesk/internal/firm"
	"airdesk/internal/summary"
	"airdesk/internal/textutil"
	"airdesk/internal/ticket"
)

const (
	subjectIssueLimit     = 30
	heroDescriptionLimit  = 60
	transcriptSnippetLine = 12
	transcriptFullLimit   = 800
	shortTicketIDLength   = 8
	truncatedNotice       = "[Transcript truncated - view full transcript in dashboard]"
	mapsSearchURL         = "https://www.google.com/maps/search/?api=1&query="
	urgentBadgeColor      = "#F97316"
	normalBadgeColor      = "#1E40AF"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("ticket.html.tmpl").
		Funcs(htmltemplate.FuncMap{"safeCSS": func(v string) htmltemplate.CSS { return htmltemplate.CSS(v) }}).
		ParseFS(templateFS, "templates/ticket.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.New("ticket.txt.tmpl").
		Funcs(texttemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/ticket.txt.tmpl"))

	summaryCaller = regexp.MustCompile(`(?i)Caller\s+(?:is|:)\s+([A-Z][a-zA-Z\s]+?)(?:\.|,|$)`)
	summaryPhone  = regexp.MustCompile(`(?i)(?:Phone|Number|Callback):\s*([+\d\s\-()]+)`)
)

// Message is a rendered dispatch e-mail.
type Message struct {
	From      string
	To        []string
	CC        []string
	Subject   string
	Preheader string
	HTML      string
	Text      string
}

// Renderer turns tickets into messages.
type Renderer struct {
	// DashboardURL is the base of the "Open Ticket" link.
	DashboardURL string
}

// Render uses the default dashboard URL.
func Render(t *ticket.Ticket, s summary.Summary, settings firm.Settings) (Message, error) {
	return Renderer{}.Render(t, s, settings)
}

type view struct {
	Subject             string
	Preheader           string
	Priority            ticket.Priority
	PriorityColor       string
	LeadStatus          ticket.LeadStatus
	IssueCategory       string
	IssueDescription    string
	IssueShort          string
	RequestedTime       string
	Address             string
	HasAddress          bool
	MapsURL             string
	CallerName          string
	Phone               string
	Tel                 string
	TelURL              htmltemplate.URL
	DashboardURL        string
	TicketID            string
	ShortTicketID       string
	Urgency             string
	ServiceFee          string
	ActionItems         []string
	Transcript          string
	TranscriptTruncated bool
	TruncatedNotice     string
}

// Render builds the dispatch e-mail for a ticket. The recipients are the
// firm's notification addresses.
func (r Renderer) Render(t *ticket.Ticket, s summary.Summary, settings firm.Settings) (Message, error) {
	if t == nil {
		return Message{}, fmt.Errorf("render email: ticket is nil")
	}
	v := r.build(t, s, settings)

	var htmlBuf bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBuf, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	var textBuf bytes.Buffer
	if err := textTemplate.Execute(&textBuf, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}

	to := make([]string, len(settings.NotifyEmails))
	copy(to, settings.NotifyEmails)
	return Message{
		To:        to,
		Subject:   v.Subject,
		Preheader: v.Preheader,
		HTML:      strings.TrimSpace(htmlBuf.String()),
		Text:      strings.TrimSpace(textBuf.String()),
	}, nil
}

type callerInfo struct {
	name    string
	phone   string
	address string
	issue   string
}

// resolveCaller prefers the intake record and falls back to the summary
// bullets for the name and phone.
func resolveCaller(t *ticket.Ticket, s summary.Summary) callerInfo {
	rec := t.Intake
	info := callerInfo{
		name:    rec.Name(),
		phone:   rec.Phone(),
		address: rec.Address(),
		issue:   rec.Issue(),
	}
	if info.name == "" {
		for _, bullet := range s.Bullets {
			if m := summaryCaller.FindStringSubmatch(bullet); m != nil {
				info.name = strings.TrimSpace(m[1])
				break
			}
		}
	}
	if info.phone == "" {
		for _, bullet := range s.Bullets {
			if m := summaryPhone.FindStringSubmatch(bullet); m != nil {
				info.phone = strings.TrimSpace(m[1])
				break
			}
		}
	}
	info.name = textutil.FirstNonEmpty(info.name, textutil.NotProvided)
	info.phone = textutil.FirstNonEmpty(info.phone, textutil.NotProvided)
	info.address = textutil.FirstNonEmpty(info.address, textutil.NotProvided)
	info.issue = textutil.FirstNonEmpty(info.issue, textutil.NotProvided)
	return info
}

func (r Renderer) build(t *ticket.Ticket, s summary.Summary, settings firm.Settings) view {
	rec := t.Intake
	caller := resolveCaller(t, s)

	requested := textutil.FirstNonEmpty(rec.RequestedWindow, "ASAP")
	category := textutil.FirstNonEmpty(rec.IssueCategory, "Not specified")
	description := textutil.FirstNonEmpty(rec.IssueDescription, caller.issue)
	urgency := textutil.FirstNonEmpty(rec.Urgency, "Normal")
	city := textutil.TitleWords(strings.TrimSpace(rec.City))
	state := strings.ToUpper(strings.TrimSpace(rec.State))

	location := city
	if state != "" {
		location += ", " + state
	}

	v := view{
		Subject: fmt.Sprintf("[NEW HVAC LEAD] %s – %s – %s",
			textutil.Truncate(caller.issue, subjectIssueLimit),
			textutil.FirstNonEmpty(rec.City, "Unknown"),
			requested),
		Preheader:        fmt.Sprintf("New HVAC lead: %s in %s — requested %s.", category, location, strings.TrimRight(strings.ToLower(requested), " .!?")),
		Priority:         t.Priority,
		PriorityColor:    normalBadgeColor,
		LeadStatus:       t.LeadStatus,
		IssueCategory:    category,
		IssueDescription: description,
		IssueShort:       textutil.Truncate(description, heroDescriptionLimit),
		RequestedTime:    requested,
		Address:          caller.address,
		HasAddress:       caller.address != textutil.NotProvided,
		CallerName:       caller.name,
		Phone:            textutil.FormatPhone(caller.phone),
		Tel:              textutil.TelNumber(caller.phone),
		DashboardURL:     dashboardLink(r.DashboardURL, t.CallID),
		TicketID:         t.ID,
		ShortTicketID:    shortID(t.ID),
		Urgency:          urgency,
		ServiceFee:       serviceFeeText(rec.ServiceFeeMentioned, settings),
		ActionItems:      classify.ActionItems(t.Priority, urgency),
		TruncatedNotice:  truncatedNotice,
	}
	if t.Priority == ticket.PriorityUrgent {
		v.PriorityColor = urgentBadgeColor
	}
	if v.LeadStatus == "" {
		v.LeadStatus = ticket.LeadNew
	}
	if v.CallerName == textutil.NotProvided {
		v.CallerName = "Unknown"
	}
	if v.HasAddress {
		v.MapsURL = mapsSearchURL + url.QueryEscape(caller.address)
	}
	if v.Tel != "" {
		v.TelURL = htmltemplate.URL("tel:" + v.Tel)
	}
	v.Transcript, v.TranscriptTruncated = transcriptSnippet(t.Transcript)
	return v
}

func dashboardLink(base, callID string) string {
	base = strings.TrimRight(textutil.FirstNonEmpty(base, "https://airdesk.app"), "/")
	if strings.TrimSpace(callID) == "" {
		return base + "/calls"
	}
	return base + "/calls/" + url.PathEscape(callID)
}

func shortID(id string) string {
	if len(id) <= shortTicketIDLength {
		return id
	}
	return id[:shortTicketIDLength]
}

func serviceFeeText(mentioned bool, settings firm.Settings) string {
	if !mentioned {
		return "No"
	}
	if settings.ServiceFee > 0 {
		return fmt.Sprintf("Yes (starts at $%s)", strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", settings.ServiceFee), "0"), "."))
	}
	return "Yes"
}

// transcriptSnippet keeps the first lines of the transcript and reports
// whether the full text is long enough to warrant the dashboard notice.
func transcriptSnippet(transcript string) (string, bool) {
	if strings.TrimSpace(transcript) == "" {
		return "", false
	}
	lines := strings.Split(transcript, "\n")
	snippet := transcript
	if len(lines) > transcriptSnippetLine {
		snippet = strings.Join(lines[:transcriptSnippetLine], "\n") + "\n..."
	}
	return snippet, len(transcript) > transcriptFullLimit
}
