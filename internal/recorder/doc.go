// Package recorder фиксирует прогресс выполнения workflow в БД.
// Реализует engine.Recorder поверх репозитория executions и остаётся
// единственным писателем записей выполнения.
package recorder
