// Package repository define el modelo persistido (usuarios y sesiones) y las
// interfaces de acceso a datos. Las implementaciones viven en store/pg y
// store/memory; la lógica de negocio nunca depende de un driver concreto.
package repository
