package chat

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hitoshi/gearcart/internal/model"
)

// promptPreamble は応答生成の役割と制約を指示する固定の前文。
const promptPreamble = `You are a helpful shopping assistant for a musical instrument store.
Answer questions about the products listed below, recommend instruments based on
the customer's needs and budget, and keep answers short and friendly.
Only discuss products from the catalog. If you do not know, say so.`

// TokenCounter はテキストのトークン数を数えるインターフェース。
type TokenCounter interface {
	Count(text string) int
}

// tiktokenCounter はtiktokenのBPEエンコーディングを使用するTokenCounter実装。
type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter はcl100k_baseエンコーディングのTokenCounterを生成する。
func NewTokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("トークンエンコーディングの初期化に失敗しました: %w", err)
	}
	return &tiktokenCounter{encoding: enc}, nil
}

// Count はテキストのトークン数を返す。
func (c *tiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// PromptBuilder はカタログと会話履歴からプロンプトを組み立てる。
// 組み立て順は固定: 前文 → 在庫カタログ → 履歴 → 新規メッセージ。
// トークン予算を超過する場合はカタログ行、次に古い履歴から削る。
// 前文と新規メッセージは常に保持される。
type PromptBuilder struct {
	counter TokenCounter
	budget  int
}

// NewPromptBuilder はPromptBuilderの新しいインスタンスを生成する。
func NewPromptBuilder(counter TokenCounter, budget int) *PromptBuilder {
	return &PromptBuilder{
		counter: counter,
		budget:  budget,
	}
}

// Build はプロンプト全体を組み立てて返す。
func (b *PromptBuilder) Build(products []*model.Product, history []*model.Message, userMessage string) string {
	catalogLines := make([]string, len(products))
	for i, p := range products {
		catalogLines[i] = fmt.Sprintf("- %s (%s): $%.2f, %d in stock. %s",
			p.Name, p.Category, p.Price, p.Stock, p.Description)
	}

	historyLines := make([]string, len(history))
	for i, msg := range history {
		historyLines[i] = fmt.Sprintf("%s: %s", msg.Role, msg.Content)
	}

	prompt := assemble(catalogLines, historyLines, userMessage)

	// 予算超過の間、まずカタログ行を末尾から、次に古い履歴から削る。
	for b.counter.Count(prompt) > b.budget {
		if len(catalogLines) > 0 {
			catalogLines = catalogLines[:len(catalogLines)-1]
		} else if len(historyLines) > 0 {
			historyLines = historyLines[1:]
		} else {
			break
		}
		prompt = assemble(catalogLines, historyLines, userMessage)
	}

	return prompt
}

// assemble は各セクションを固定の順序で結合する。
func assemble(catalogLines, historyLines []string, userMessage string) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)

	if len(catalogLines) > 0 {
		sb.WriteString("\n\nCurrent catalog (in stock):\n")
		sb.WriteString(strings.Join(catalogLines, "\n"))
	}

	if len(historyLines) > 0 {
		sb.WriteString("\n\nConversation so far:\n")
		sb.WriteString(strings.Join(historyLines, "\n"))
	}

	sb.WriteString("\n\nuser: ")
	sb.WriteString(userMessage)
	sb.WriteString("\nassistant:")

	return sb.String()
}
