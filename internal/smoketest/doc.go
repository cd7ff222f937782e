// Package smoketest содержит smoke-тесты целостности apk-exchange.
//
// Smoke-тесты проверяют:
//   - регистрацию всех NR-команд в глобальном реестре;
//   - непустые Name() и Description() каждого handler;
//   - структурированный вывод команд обмена при ошибке конфигурации и в режиме dry-run.
//
// Бизнес-логика обмена проверяется в handler_test.go каждого handler-пакета.
package smoketest
