// Package providers содержит клиенты внешних AI-сервисов:
// OpenRouter и NVIDIA NIM для текстовой генерации,
// HuggingFace Inference API для генерации изображений.
//
// Все клиенты возвращают единообразную ошибку *Error с сообщением
// upstream-сервиса и поддерживают переопределение базового URL
// и таймаута для тестирования.
package providers
