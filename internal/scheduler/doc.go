// Package scheduler запускает workflows по расписанию.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at,
// создаёт executions с trigger="schedule" и публикует их движку.
//
// Структура:
//   - scheduler.go — основная логика (Tick, fire)
//   - cron.go      — cron-выражения и вычисление следующего времени
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock;
// Tick() вызывается только лидером.
package scheduler
