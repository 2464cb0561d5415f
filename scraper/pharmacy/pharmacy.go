package pharmacy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"pharmacy-tracker/config"
	"pharmacy-tracker/models"
	"pharmacy-tracker/storage"
	"pharmacy-tracker/utils"
)

const itemsPerPage = 20

var (
	totalRe = regexp.MustCompile(`Найдено позиций в продаже - (\d+)`)
	qtyRe   = regexp.MustCompile(`\d+\.?\d*`)
)

// Scraper walks a competitor's online catalog and produces the raw records
// for one snapshot.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use catalog Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// pageItem mirrors one catalog table row as extracted in the browser.
// Form and Producer are composite cells split during cleaning.
type pageItem struct {
	Name     string `json:"name"`
	ItemType string `json:"itemType"`
	Form     string `json:"form"`
	Producer string `json:"producer"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// Scrape reads the total position count, then walks the paginated catalog
// collecting every row. Page fetches are retried with jittered backoff and
// separated by a randomized pause to stay under rate limits. The passed
// context aborts the walk between pages.
func (s *Scraper) Scrape(ctx context.Context, catalogURL string) ([]*models.RawRecord, error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[scrape] using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	total, err := s.totalPositions(allocCtx, catalogURL)
	if err != nil {
		return nil, fmt.Errorf("could not determine catalog size: %w", err)
	}
	totalPages := total / itemsPerPage
	if total%itemsPerPage != 0 {
		totalPages++
	}
	s.logger.Info("[scrape] %d positions on sale across %d pages", total, totalPages)

	var records []*models.RawRecord
	for page := 1; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("scrape aborted at page %d: %w", page, err)
		}

		items, err := s.scrapePage(allocCtx, catalogURL, page)
		if err != nil {
			s.logger.Error("[scrape] page %d failed: %v, stopping walk", page, err)
			break
		}
		if len(items) == 0 {
			s.logger.Warn("[scrape] page %d returned no rows, stopping walk", page)
			break
		}

		for _, item := range items {
			rec, err := s.cleanItem(item)
			if err != nil {
				s.logger.Warn("[scrape] page %d: dropping row %q: %v", page, item.Name, err)
				continue
			}
			records = append(records, rec)
		}
		s.logger.Info("[scrape] page %d/%d done, %d records so far", page, totalPages, len(records))

		if page < totalPages {
			time.Sleep(utils.Jitter(time.Duration(s.cfg.RateLimitMs) * time.Millisecond))
		}
	}

	s.logger.Info("[scrape] complete, %d raw records", len(records))
	return records, nil
}

// cleanItem splits the composite form and producer cells and extracts the
// numeric quantity, producing one immutable RawRecord.
func (s *Scraper) cleanItem(item pageItem) (*models.RawRecord, error) {
	formParts := splitLines(item.Form)
	producerParts := splitLines(item.Producer)

	id := models.Identity{
		Name:         item.Name,
		ItemType:     item.ItemType,
		ItemForm:     first(formParts),
		Prescription: rest(formParts),
		Manufacturer: first(producerParts),
		Country:      rest(producerParts),
	}.Normalize()

	key, err := id.Key()
	if err != nil {
		return nil, err
	}

	return &models.RawRecord{
		Identity:     id,
		Key:          key,
		Price:        strings.TrimSpace(item.Price),
		Quantity:     strings.TrimSpace(item.Quantity),
		OnlyQuantity: qtyRe.FindString(item.Quantity),
	}, nil
}

// SaveSnapshot writes the records as the next canonical snapshot file for
// the competitor directory and returns its path.
func (s *Scraper) SaveSnapshot(dir string, records []*models.RawRecord, sink storage.SnapshotSink) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	index, err := storage.NextSnapshotIndex(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, storage.SnapshotFileName(index, time.Now()))
	if err := sink.WriteSnapshot(path, records); err != nil {
		return "", err
	}
	s.logger.Info("[scrape] snapshot saved: %s (%d records)", path, len(records))
	return path, nil
}

func (s *Scraper) totalPositions(allocCtx context.Context, catalogURL string) (int, error) {
	var total int

	err := s.retry.Do("total-positions", func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		var labelText string
		err := chromedp.Run(ctx,
			chromedp.Navigate(catalogURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`
				(function() {
					var box = document.querySelector('div.bttn-check');
					if (!box) return '';
					var label = box.querySelector('label');
					return label ? label.textContent.trim() : '';
				})()
			`, &labelText),
		)
		if err != nil {
			return fmt.Errorf("chromedp evaluate: %w", err)
		}

		m := totalRe.FindStringSubmatch(labelText)
		if m == nil {
			return fmt.Errorf("position count not found in %q", labelText)
		}
		fmt.Sscanf(m[1], "%d", &total)
		return nil
	})

	return total, err
}

func (s *Scraper) scrapePage(allocCtx context.Context, catalogURL string, page int) ([]pageItem, error) {
	var items []pageItem

	err := s.retry.Do(fmt.Sprintf("scrape-page-%d", page), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		var pageItems []pageItem
		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL(catalogURL, page)),
			chromedp.Sleep(3*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var table = document.querySelector('table.table-border');
					if (!table) return results;

					var rows = table.querySelectorAll('tr');
					for (var i = 1; i < rows.length; i++) {
						var cols = rows[i].querySelectorAll('td');
						if (cols.length < 5) continue;

						var nameEl  = cols[0].querySelector('a');
						var typeEl  = cols[0].querySelector('span.capture');
						var priceEl = cols[4].querySelector('.price-value');
						var qtyEl   = cols[4].querySelector('.capture');

						results.push({
							name:     nameEl  ? nameEl.textContent.trim()  : '',
							itemType: typeEl  ? typeEl.textContent.trim()  : '',
							form:     cols[1].innerText.trim(),
							producer: cols[2].innerText.trim(),
							price:    priceEl ? priceEl.textContent.trim() : '',
							quantity: qtyEl   ? qtyEl.textContent.trim()   : ''
						});
					}
					return results;
				})()
			`, &pageItems),
		)
		if err != nil {
			return fmt.Errorf("chromedp page extract: %w", err)
		}

		items = pageItems
		return nil
	})

	return items, err
}

func pageURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

func splitLines(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func first(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func rest(parts []string) string {
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// findChromeBinary locates the Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
