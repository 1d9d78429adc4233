// Package engine содержит движок выполнения workflow.
//
// Включает:
//   - graph.go  — построение графа узлов, проверка на циклы,
//     топологический порядок достижимых узлов
//   - runner.go — планировщик обхода: запуск executors, буферизация
//     входных батчей, fan-out по рёбрам, кооперативная отмена
//   - errors.go — таксономия ошибок движка
//
// Engine не знает ни про Postgres, ни про HTTP: хранилище workflow,
// recorder и реестр executors внедряются через интерфейсы, жизненным
// циклом владеют точки входа в cmd/.
package engine
