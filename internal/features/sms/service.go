package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	common_models "go-crm-automation/internal/common/models"
	"go-crm-automation/internal/config"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SMSServiceImpl posts messages to an HTTP SMS gateway. Without a gateway
// URL messages are recorded but not delivered.
type SMSServiceImpl struct {
	Repo       SMSRepository
	HttpClient *http.Client
	gatewayURL string
	apiKey     string
	from       string
	logger     *zap.Logger
}

func NewSMSService(cfg *config.Config, repo SMSRepository, logger *zap.Logger) *SMSServiceImpl {
	return &SMSServiceImpl{
		Repo: repo,
		HttpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		gatewayURL: cfg.SMSGatewayURL,
		apiKey:     cfg.SMSAPIKey,
		from:       cfg.SMSFrom,
		logger:     logger,
	}
}

func (s *SMSServiceImpl) Send(ctx context.Context, to, message string) (string, error) {
	if to == "" {
		return "", errors.New("recipient is required")
	}
	companyID, _ := ctx.Value(common_models.CompanyIDKey).(string)

	record := &SMSMessage{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		From:      s.from,
		To:        to,
		Body:      message,
		Status:    SMSQueued,
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to record sms: %w", err)
	}

	if s.gatewayURL == "" {
		s.logger.Info("sms gateway not configured, message recorded only", zap.String("to", to))
		_ = s.Repo.UpdateStatus(ctx, record.ID, SMSLogged, "", "")
		return record.ID.Hex(), nil
	}

	providerID, err := s.post(ctx, gatewayRequest{From: s.from, To: to, Message: message})
	if err != nil {
		_ = s.Repo.UpdateStatus(ctx, record.ID, SMSFailed, "", err.Error())
		return "", err
	}

	if err := s.Repo.UpdateStatus(ctx, record.ID, SMSSent, providerID, ""); err != nil {
		s.logger.Warn("failed to update sms status", zap.String("sms_id", record.ID.Hex()), zap.Error(err))
	}
	if providerID == "" {
		providerID = record.ID.Hex()
	}
	return providerID, nil
}

func (s *SMSServiceImpl) post(ctx context.Context, payload gatewayRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var out gatewayResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return out.ID, nil
}
