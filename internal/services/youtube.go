package services

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"watchwise-backend/internal/models"
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

// TranscriptSegment is one caption line with its start offset in seconds.
type TranscriptSegment struct {
	Start float64
	Text  string
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// ExtractVideoID resolves a watch URL, share link or bare id to the video id.
func (s *YouTubeService) ExtractVideoID(videoURL string) (string, error) {
	id, err := yt.ExtractVideoID(videoURL)
	if err != nil {
		return "", fmt.Errorf("not a recognizable YouTube URL or video id: %w", err)
	}
	return id, nil
}

// GetMetadata fetches the title, author, duration and thumbnail used to
// start a viewing session.
func (s *YouTubeService) GetMetadata(videoID string) (*models.VideoMetadata, error) {
	video, err := s.ytClient.GetVideo(videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video metadata: %w", err)
	}

	thumbnail := fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered smallest first; take the largest.
		thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	return &models.VideoMetadata{
		VideoID:      videoID,
		Title:        video.Title,
		Author:       video.Author,
		ThumbnailURL: thumbnail,
		Duration:     int(video.Duration.Seconds()),
	}, nil
}

// GetTranscript fetches the full caption text for a video.
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			segments, legacyErr := s.getTimedSegments(videoID)
			if legacyErr == nil {
				return joinSegments(segments), nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, legacyErr)
		}
	}

	if len(transcript.Entries) == 0 {
		return "", fmt.Errorf("subtitle track is empty")
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("subtitle text resolved to empty content")
	}

	return cleaned, nil
}

// transcriptWindowSeconds bounds how far back from the pause point an
// insight looks. Keeps the prompt focused on what was just watched.
const transcriptWindowSeconds = 300

// GetTranscriptWindow returns the caption text covering the window leading
// up to a pause. When no timed captions exist the full transcript is
// returned so insight generation still has material to work with.
func (s *YouTubeService) GetTranscriptWindow(videoID string, untilSeconds int) (string, error) {
	segments, err := s.getTimedSegments(videoID)
	if err != nil {
		return s.GetTranscript(videoID)
	}

	from := float64(untilSeconds - transcriptWindowSeconds)
	until := float64(untilSeconds)

	var window []TranscriptSegment
	for _, seg := range segments {
		if seg.Start >= from && seg.Start <= until {
			window = append(window, seg)
		}
	}
	if len(window) == 0 {
		// Pause landed before the first caption; fall back to everything
		// up to the pause point.
		for _, seg := range segments {
			if seg.Start <= until {
				window = append(window, seg)
			}
		}
	}
	if len(window) == 0 {
		return "", fmt.Errorf("no captions before %ds", untilSeconds)
	}

	return joinSegments(window), nil
}

func joinSegments(segments []TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (s *YouTubeService) getTimedSegments(videoID string) ([]TranscriptSegment, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, _ := http.NewRequest("GET", pageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read YouTube page: %w", err)
	}

	captionURL, err := extractCaptionURL(string(body))
	if err != nil {
		return nil, err
	}

	captionResp, err := s.httpClient.Get(captionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	segments, err := parseCaptionsXML(captionBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}
	return segments, nil
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		re2 := regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
		matches = re2.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	tracksJSON := matches[1]
	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(tracksJSON)
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) ([]TranscriptSegment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var segments []TranscriptSegment
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text == "" {
			continue
		}
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			start = 0
		}
		segments = append(segments, TranscriptSegment{Start: start, Text: text})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("captions XML empty")
	}

	return segments, nil
}
