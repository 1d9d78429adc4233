// Package api реализует HTTP JSON API поверх стандартного net/http.
//
// Используются method patterns ServeMux (Go 1.22+): "GET /api/v1/workflows/{id}".
// Все ответы заворачиваются в единый конверт: {"success": true, "data": ...}
// либо {"success": false, "error": {"code": ..., "message": ...}}.
//
// Принципал запроса берётся из заголовка X-Principal. Аутентификацию
// выполняет внешний слой (reverse proxy, gateway); API доверяет заголовку.
//
// Маршруты:
//
//	GET    /api/v1/workflows                     — список workflows
//	POST   /api/v1/workflows                     — создание workflow
//	GET    /api/v1/workflows/{id}                — workflow по ID
//	PUT    /api/v1/workflows/{id}                — обновление workflow
//	DELETE /api/v1/workflows/{id}                — удаление workflow
//	POST   /api/v1/workflows/{id}/executions     — запуск workflow
//	GET    /api/v1/workflows/{id}/executions     — история запусков
//	GET    /api/v1/executions/{id}               — execution с историей узлов
//	POST   /api/v1/executions/{id}/cancel        — отмена execution
//	DELETE /api/v1/executions/{id}               — удаление записи execution
//	GET    /api/v1/credentials                   — credentials принципала
//	POST   /api/v1/credentials                   — сохранение секрета
//	PUT    /api/v1/credentials/{id}              — обновление секрета
//	DELETE /api/v1/credentials/{id}              — удаление секрета
//	GET    /api/v1/schedules                     — список расписаний
//	POST   /api/v1/workflows/{id}/schedules      — создание расписания
//	GET    /api/v1/schedules/{id}                — расписание по ID
//	PUT    /api/v1/schedules/{id}/enabled        — включение/выключение
//	DELETE /api/v1/schedules/{id}                — удаление расписания
package api
