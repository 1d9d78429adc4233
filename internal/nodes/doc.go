// Package nodes содержит стандартный набор executors узлов workflow:
// триггер ручного запуска, HTTP-запрос, извлечение из HTML,
// AI-генерация текста и изображений, экспорт документа,
// разворачивание массива, условие и пользовательская трансформация.
//
// Каждый executor реализует engine.Executor и регистрируется
// в Registry по типу узла. Выражения узлов if и code вычисляются
// в песочнице expr без доступа к окружению процесса.
package nodes
