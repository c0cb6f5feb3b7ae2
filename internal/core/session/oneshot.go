package session

// oneShot 最多触发一次的回调槽
//
// 未设置回调时 Take 不消耗槽位，之后设置的回调仍可被取出一次。
type oneShot[F any] struct {
	fn    F
	set   bool
	fired bool
}

// Set 设置回调，已触发过则忽略
func (o *oneShot[F]) Set(fn F) {
	if o.fired {
		return
	}
	o.fn = fn
	o.set = true
}

// Take 取出回调并标记为已触发
func (o *oneShot[F]) Take() (F, bool) {
	var zero F
	if o.fired || !o.set {
		return zero, false
	}
	fn := o.fn
	o.fn = zero
	o.fired = true
	return fn, true
}

// Fired 是否已触发
func (o *oneShot[F]) Fired() bool {
	return o.fired
}
