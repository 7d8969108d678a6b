package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zccoffin/Spekter/internal/domain"
)

func (c *Client) GetUserData(ctx context.Context, inviter string) (Result, error) {
	return c.Send(ctx, c.baseURL+"/getUserData", http.MethodPost,
		map[string]any{"inviter": inviter},
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) StartStage(ctx context.Context, stageID int) (Result, error) {
	return c.Send(ctx, c.baseURL+"/startStage", http.MethodPost,
		map[string]any{"stageId": strconv.Itoa(stageID)},
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) EndStage(ctx context.Context, payload domain.EndStagePayload) (Result, error) {
	return c.Send(ctx, c.baseURL+"/endStage", http.MethodPost, payload,
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) ClaimStageReward(ctx context.Context, stageID int) (Result, error) {
	return c.Send(ctx, c.baseURL+"/claimStageReward", http.MethodPost,
		map[string]any{"stageId": stageID},
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) HarvestSparkCore(ctx context.Context) (Result, error) {
	return c.Send(ctx, c.baseURL+"/harvestSparkCore", http.MethodPost,
		map[string]any{"data": nil},
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) GetSparkLink(ctx context.Context) (Result, error) {
	return c.Send(ctx, c.baseURL+"/getSparkLink", http.MethodPost,
		map[string]any{},
		SendOptions{Retries: DefaultRetries})
}

func (c *Client) ClaimSparkLinkQuest(ctx context.Context, inviteeUID string) (Result, error) {
	return c.Send(ctx, c.baseURL+"/claimSparkLinkStageQuest", http.MethodPost,
		map[string]any{"inviteeUid": inviteeUID},
		SendOptions{Retries: DefaultRetries})
}

const defaultIPCheckURL = "https://api.ipify.org?format=json"

// CheckProxyIP resolves the session's public IP through its proxy. A failure
// here means the proxy is unusable and the account run must not proceed.
func (c *Client) CheckProxyIP(ctx context.Context) (string, error) {
	res, err := c.Send(ctx, c.ipCheckURL, http.MethodGet, nil, SendOptions{Auth: true, Retries: 1})
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("check proxy ip: %s", res.Err)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(res.Data, &payload); err != nil {
		return "", fmt.Errorf("decode proxy ip response: %w", err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("proxy ip response missing ip")
	}
	return payload.IP, nil
}
