package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	execCalled bool
	execCount  atomic.Int64
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalled = true
	m.execCount.Add(1)
	m.query = query
	m.args = args
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// logHasField はJSONログ出力に指定のキーと値が含まれるかを調べる。
func logHasField(logOutput, key string, want float64) bool {
	for _, line := range strings.Split(strings.TrimSpace(logOutput), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok && v == want {
			return true
		}
	}
	return false
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{result: &fakeResult{}}, newTestLogger(&buf))

	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

func TestCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されなかった")
	}

	if !strings.Contains(mock.query, "DELETE FROM conversations") {
		t.Errorf("クエリに 'DELETE FROM conversations' が含まれていない: %s", mock.query)
	}

	if !strings.Contains(mock.query, "created_at") {
		t.Errorf("クエリに 'created_at' 条件が含まれていない: %s", mock.query)
	}
}

func TestCleanupJob_Run_UsesIntervalParameter(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	_ = job.Run(context.Background())

	if len(mock.args) < 1 {
		t.Fatal("ExecContext に引数が渡されなかった")
	}

	argStr, ok := mock.args[0].(string)
	if !ok {
		t.Fatalf("第1引数が string ではない: %T", mock.args[0])
	}
	if argStr != "90 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "90 days")
	}
}

func TestCleanupJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 30

	_ = job.Run(context.Background())

	argStr, _ := mock.args[0].(string)
	if argStr != "30 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "30 days")
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 42}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	_ = job.Run(context.Background())

	if !logHasField(buf.String(), "deleted_count", 42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if !logHasField(buf.String(), "retention_days", 90) {
		t.Errorf("ログに retention_days=90 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: sql.ErrConnDone}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}

	// 削除対象がなくてもエラーにならない
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}

	if !logHasField(buf.String(), "deleted_count", 0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

// スケジューラが起動直後に1回実行し、キャンセルで停止することを検証
func TestScheduler_Start_RunsImmediatelyAndStops(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, logger)
	scheduler := NewScheduler(job, logger)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx, 1*time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.After(2 * time.Second)
	for mock.execCount.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("起動直後のクリーンアップ実行が確認できなかった")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("コンテキストキャンセル後もスケジューラが停止しなかった")
	}
}

// ティッカー間隔ごとに繰り返し実行されることを検証
func TestScheduler_Start_RepeatsOnInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, logger)
	scheduler := NewScheduler(job, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Start(ctx, 20*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for mock.execCount.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("繰り返し実行が確認できなかった: count = %d", mock.execCount.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
