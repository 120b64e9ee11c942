// Package llm はチャット応答の生成クライアントを提供する。
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer はプロンプトから応答テキストを生成するインターフェース。
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client はOpenAI互換APIを使用するCompleter実装。
type Client struct {
	llm llms.LLM
}

// Config はClientの接続設定。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg Config) (*Client, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("生成クライアントの初期化に失敗しました: %w", err)
	}
	return &Client{llm: llm}, nil
}

// Complete はプロンプトから応答テキストを生成する。
// タイムアウトはctx経由で呼び出し側が制御する。
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("応答の生成に失敗しました: %w", err)
	}
	return completion, nil
}

// compile-time interface check
var _ Completer = (*Client)(nil)
