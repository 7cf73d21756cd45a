// Package facilitysync imports the facility catalogue owned by the external
// facility-management system. Only names and locations are copied; availability
// and maintenance flags stay under local control.
package facilitysync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/store"
)

// Service periodically pulls the catalogue and upserts it into the store.
type Service struct {
	cfg    config.FacilitySyncConfig
	store  store.Store
	client *http.Client
}

func NewService(cfg config.FacilitySyncConfig, s store.Store) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Facility sync will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:   cfg,
		store: s,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Run syncs once immediately and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Facility sync is disabled. Not starting.")
		return
	}
	log.Println("Starting facility sync service...")

	s.logCycle(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Facility sync service shutting down.")
			return
		case <-timer.C:
			s.logCycle(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) logCycle(ctx context.Context) {
	n, err := s.SyncOnce(ctx)
	if err != nil {
		log.Printf("Facility sync cycle failed: %v", err)
		return
	}
	log.Printf("Facility sync cycle finished: %d facilities upserted.", n)
}

// SyncOnce fetches every page and upserts the facilities. A failure on a later page
// still upserts what was fetched before it.
func (s *Service) SyncOnce(ctx context.Context) (int, error) {
	var (
		facilities []model.Facility
		fetchErr   error
	)
	total := 1
	for page := 1; (page-1)*s.cfg.PageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			fetchErr = fmt.Errorf("page %d: %w", page, err)
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		for _, item := range resp.Data.Items {
			if item.ID <= 0 || item.Name == "" {
				log.Printf("Warning: skipping catalogue entry without id or name: %+v", item)
				continue
			}
			facilities = append(facilities, item.facility())
		}
	}

	if len(facilities) == 0 {
		return 0, fetchErr
	}
	if err := s.store.UpsertFacilities(ctx, facilities); err != nil {
		return 0, err
	}
	return len(facilities), fetchErr
}

func (s *Service) fetchPage(ctx context.Context, page int) (*apiResponse, error) {
	jsonBody, err := json.Marshal(map[string]int{"page": page, "pageSize": s.cfg.PageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}
	return &apiResp, nil
}
