package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"noticeboard/pkg/logger"
)

// Task 表示一个异步任务
type Task struct {
	ID       string
	Handler  func(ctx context.Context) error
	Timeout  time.Duration
	RetryMax int
}

// Worker 异步任务处理器，用于附件远端删除等尽力而为的补偿操作
type Worker struct {
	taskQueue chan Task
	logger    *logger.Logger
	wg        sync.WaitGroup
}

// NewWorker 创建一个新的工作器
func NewWorker(queueSize int, logger *logger.Logger) *Worker {
	return &Worker{
		taskQueue: make(chan Task, queueSize),
		logger:    logger,
	}
}

// Start 启动工作器
func (w *Worker) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.processTask()
	}
}

// Stop 停止工作器并等待队列中剩余任务执行完毕
func (w *Worker) Stop() {
	close(w.taskQueue)
	w.wg.Wait()
}

// Submit 将任务加入队列
func (w *Worker) Submit(name string, handler func(ctx context.Context) error) {
	w.taskQueue <- Task{
		ID:      fmt.Sprintf("%s_%d", name, time.Now().UnixNano()),
		Handler: handler,
		Timeout: 30 * time.Second,
	}
}

// processTask 处理任务的工作循环
func (w *Worker) processTask() {
	defer w.wg.Done()
	for task := range w.taskQueue {
		w.executeTask(task)
	}
}

// executeTask 执行单个任务
func (w *Worker) executeTask(task Task) {
	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	var err error
	for attempt := 0; attempt <= task.RetryMax; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Second * time.Duration(attempt)) // 简单的退避策略
		}

		if err = task.Handler(ctx); err == nil {
			break
		}
	}

	// 任务失败只记录日志，不影响主流程
	if err != nil {
		w.logger.Error("异步任务执行失败", "task_id", task.ID, "error", err)
	}
}
