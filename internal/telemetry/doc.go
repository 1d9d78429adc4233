// Package telemetry обеспечивает наблюдаемость системы.
//
// Логирование строится на log/slog: SetupLogger() настраивает
// глобальный логгер по переменным LOG_LEVEL и LOG_FORMAT, а
// With{ExecutionID,WorkflowID,NodeID} добавляют сквозные атрибуты
// для корреляции записей одного выполнения.
//
// Метрики (prometheus) объявляются в точках входа cmd/ и
// публикуются через /metrics каждого бинарника.
package telemetry
