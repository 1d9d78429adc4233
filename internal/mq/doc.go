// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - execution.pending — новый execution ожидает выполнения
//   - execution.cancel  — запрос отмены execution
//
// Exchanges:
//   - conveyor.executions — события executions (direct)
//   - conveyor.cancel     — запросы отмены (fanout на все движки)
//   - conveyor.dlq        — dead letter queue
package mq
