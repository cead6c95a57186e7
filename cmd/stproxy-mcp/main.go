package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// validateRequest mirrors the stproxy API request model.
type validateRequest struct {
	Text     string `json:"text"`
	Timeout  int    `json:"timeout,omitempty"`
	Markdown bool   `json:"markdown,omitempty"`
}

// validateResponse mirrors the stproxy API response model.
type validateResponse struct {
	Success        bool   `json:"success"`
	Result         string `json:"result"`
	ResultMarkdown string `json:"result_markdown"`
	Filled         bool   `json:"filled"`
	Clicked        bool   `json:"clicked"`
	FilledWith     string `json:"filled_with"`
	ClickedWith    string `json:"clicked_with"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// healthResponse mirrors the stproxy health model.
type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Target struct {
		URL       string `json:"url"`
		Reachable bool   `json:"reachable"`
		Title     string `json:"title"`
		Error     string `json:"error"`
	} `json:"target"`
}

func main() {
	apiURL := os.Getenv("STPROXY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("STPROXY_API_KEY")

	s := server.NewMCPServer(
		"stproxy",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	validateTool := mcp.NewTool("validate_text",
		mcp.WithDescription("Submit text to the hosted analysis app through a headless browser and return the app's rendered output. The app is filled, triggered, and polled until it produces output."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to submit to the analysis app"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Maximum seconds for the whole operation (default: 60, max: 120)"),
		),
		mcp.WithBoolean("markdown",
			mcp.Description("Also return the output rendered as Markdown"),
		),
	)
	s.AddTool(validateTool, handleValidateText(apiURL, apiKey))

	healthTool := mcp.NewTool("check_health",
		mcp.WithDescription("Check whether the stproxy service and its remote target app are up."),
	)
	s.AddTool(healthTool, handleCheckHealth(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleValidateText(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		reqBody := validateRequest{
			Text:     text,
			Timeout:  request.GetInt("timeout", 0),
			Markdown: request.GetBool("markdown", false),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/validate", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var vResp validateResponse
		if err := json.Unmarshal(respBody, &vResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !vResp.Success {
			errMsg := "validation failed"
			if vResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", vResp.Error.Code, vResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		result := vResp.Result
		if vResp.ResultMarkdown != "" {
			result = vResp.ResultMarkdown
		}
		if !vResp.Filled || !vResp.Clicked {
			result += fmt.Sprintf("\n\n---\nNote: filled=%v (%s) clicked=%v (%s); output may be stale.",
				vResp.Filled, vResp.FilledWith, vResp.Clicked, vResp.ClickedWith)
		}

		return mcp.NewToolResultText(result), nil
	}
}

func handleCheckHealth(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/health", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("health request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var h healthResponse
		if err := json.Unmarshal(respBody, &h); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		msg := fmt.Sprintf("Service: %s (up %s)\nTarget: %s reachable=%v",
			h.Status, h.Uptime, h.Target.URL, h.Target.Reachable)
		if h.Target.Title != "" {
			msg += " title=" + h.Target.Title
		}
		if h.Target.Error != "" {
			msg += " error=" + h.Target.Error
		}
		return mcp.NewToolResultText(msg), nil
	}
}
